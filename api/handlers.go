package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

const requestBodyMaxSize = 1 << 20

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Store, auth Authenticator, logger *log.Logger) {
	a := e.Group("/auth")
	a.POST("/register", register(store, auth))
	a.POST("/login", login(store, auth))
	a.POST("/logout", logout(auth))
	a.GET("/me", me(store, auth))
	a.POST("/refresh", refresh(auth))

	t := e.Group("/tasks")
	t.GET("", listTasks(store, auth, logger))
	t.POST("", createTask(store, auth))
	t.GET("/:id", getTask(store, auth))
	t.PUT("/:id", updateTask(store, auth))
	t.DELETE("/:id", deleteTask(store, auth))

	e.GET("/healthz", healthz(store))
}

type authResponse struct {
	Message   string       `json:"message"`
	User      *domain.User `json:"user,omitempty"`
	Token     string       `json:"token,omitempty"`
	TokenType string       `json:"token_type,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type validationResponse struct {
	Errors FieldErrors `json:"errors"`
}

func decodeBody(c echo.Context, dst any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func healthz(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, err.Error())
		}
		return c.NoContent(http.StatusOK)
	}
}

func register(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req registerRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if errs := req.validate(); errs != nil {
			return c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to register user", Error: err.Error()})
		}

		user, err := store.CreateUser(ctx, domain.User{
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			Address:      req.Address,
			PasswordHash: string(hash),
		})
		if errors.Is(err, storage.ErrEmailTaken) {
			errs := FieldErrors{}
			errs.add("email", "The email has already been taken.")
			return c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to register user", Error: err.Error()})
		}

		token, err := auth.IssueToken(user.ID)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to register user", Error: err.Error()})
		}

		return c.JSON(http.StatusCreated, authResponse{
			Message:   "User registered successfully",
			User:      &user,
			Token:     token,
			TokenType: "bearer",
		})
	}
}

func login(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if errs := req.validate(); errs != nil {
			return c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		}

		// Lookup and compare failures share one response so the caller
		// cannot tell which field was wrong.
		user, err := store.UserByEmail(ctx, req.Email)
		if errors.Is(err, storage.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid credentials"})
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to log in", Error: err.Error()})
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Invalid credentials"})
		}

		token, err := auth.IssueToken(user.ID)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to log in", Error: err.Error()})
		}

		return c.JSON(http.StatusOK, authResponse{
			Message:   "Logged in successfully",
			User:      &user,
			Token:     token,
			TokenType: "bearer",
		})
	}
}

func logout(auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		// Logout always succeeds. A bad or absent token leaves nothing to
		// revoke; a valid one is retired server-side.
		claims, err := auth.ClaimsFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err == nil {
			if err := auth.RevokeToken(ctx, claims); err != nil {
				c.Logger().Error(err)
			}
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
	}
}

func me(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		claims, err := auth.ClaimsFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
		}
		user, err := store.UserByID(ctx, claims.UserID)
		if errors.Is(err, storage.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: "Unauthenticated."})
		}
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to fetch user", Error: err.Error()})
		}
		return c.JSON(http.StatusOK, user)
	}
}

func refresh(auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		claims, err := auth.ClaimsFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
		}

		token, err := auth.IssueToken(claims.UserID)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to refresh token", Error: err.Error()})
		}
		// Rotate: the replaced token must stop working immediately.
		if err := auth.RevokeToken(ctx, claims); err != nil {
			c.Logger().Error(err)
		}

		return c.JSON(http.StatusOK, authResponse{
			Message:   "Token refreshed",
			Token:     token,
			TokenType: "bearer",
		})
	}
}
