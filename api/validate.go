package api

import (
	"regexp"
	"strings"

	"taskboard-api/domain"
)

// FieldErrors maps a field name to its validation failures, serialized
// directly into 422 responses.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	Address              string `json:"address"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (r registerRequest) validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(r.Name) == "" {
		errs.add("name", "The name field is required.")
	} else if len(r.Name) > 255 {
		errs.add("name", "The name may not be greater than 255 characters.")
	}
	switch {
	case strings.TrimSpace(r.Email) == "":
		errs.add("email", "The email field is required.")
	case len(r.Email) > 255:
		errs.add("email", "The email may not be greater than 255 characters.")
	case !emailRx.MatchString(r.Email):
		errs.add("email", "The email must be a valid email address.")
	}
	if strings.TrimSpace(r.Phone) == "" {
		errs.add("phone", "The phone field is required.")
	} else if len(r.Phone) > 20 {
		errs.add("phone", "The phone may not be greater than 20 characters.")
	}
	if strings.TrimSpace(r.Address) == "" {
		errs.add("address", "The address field is required.")
	} else if len(r.Address) > 255 {
		errs.add("address", "The address may not be greater than 255 characters.")
	}
	switch {
	case r.Password == "":
		errs.add("password", "The password field is required.")
	case len(r.Password) < 6:
		errs.add("password", "The password must be at least 6 characters.")
	case r.Password != r.PasswordConfirmation:
		errs.add("password", "The password confirmation does not match.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) validate() FieldErrors {
	errs := FieldErrors{}
	switch {
	case strings.TrimSpace(r.Email) == "":
		errs.add("email", "The email field is required.")
	case !emailRx.MatchString(r.Email):
		errs.add("email", "The email must be a valid email address.")
	}
	if r.Password == "" {
		errs.add("password", "The password field is required.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

type taskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

func (r taskCreateRequest) validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(r.Title) == "" {
		errs.add("title", "The title field is required.")
	} else if len(r.Title) > 255 {
		errs.add("title", "The title may not be greater than 255 characters.")
	}
	if r.Priority != "" && !domain.Priority(r.Priority).Valid() {
		errs.add("priority", "The selected priority is invalid.")
	}
	if r.Status != "" && !domain.Status(r.Status).Valid() {
		errs.add("status", "The selected status is invalid.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// task builds the domain object with defaults applied.
func (r taskCreateRequest) task(userID string) domain.Task {
	t := domain.Task{
		UserID:      userID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    domain.Priority(r.Priority),
		Status:      domain.Status(r.Status),
	}
	if r.Priority == "" {
		t.Priority = domain.DefaultPriority
	}
	if r.Status == "" {
		t.Status = domain.DefaultStatus
	}
	return t
}

type taskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

func (r taskUpdateRequest) validate() FieldErrors {
	errs := FieldErrors{}
	if r.Title != nil {
		if strings.TrimSpace(*r.Title) == "" {
			errs.add("title", "The title field is required.")
		} else if len(*r.Title) > 255 {
			errs.add("title", "The title may not be greater than 255 characters.")
		}
	}
	if r.Priority != nil && !domain.Priority(*r.Priority).Valid() {
		errs.add("priority", "The selected priority is invalid.")
	}
	if r.Status != nil && !domain.Status(*r.Status).Valid() {
		errs.add("status", "The selected status is invalid.")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (r taskUpdateRequest) patch() domain.TaskPatch {
	p := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Priority != nil {
		v := domain.Priority(*r.Priority)
		p.Priority = &v
	}
	if r.Status != nil {
		v := domain.Status(*r.Status)
		p.Status = &v
	}
	return p
}
