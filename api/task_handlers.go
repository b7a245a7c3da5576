package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

type taskEnvelope struct {
	Message string      `json:"message"`
	Data    domain.Task `json:"data"`
}

// taskError maps store failures for single-task operations. A task owned by
// someone else is 403, a missing one is 404.
func taskError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, storage.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, messageResponse{Message: "Task not found"})
	case errors.Is(err, storage.ErrNotOwner):
		return c.JSON(http.StatusForbidden, messageResponse{Message: "Unauthorized"})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: fallback, Error: err.Error()})
	}
}

func listTasks(store Store, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		claims, authErr := auth.ClaimsFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, messageResponse{Message: authErr.Error()})
			return err
		}

		filter := domain.TaskFilter{
			Status:   c.QueryParam("status"),
			Priority: c.QueryParam("priority"),
		}
		metrics.SetFiltered(!filter.Unfiltered())

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx, claims.UserID, filter)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to fetch tasks", Error: fetchErr.Error()})
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createTask(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		claims, err := auth.ClaimsFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
		}

		var req taskCreateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if errs := req.validate(); errs != nil {
			return c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		}

		task, err := store.CreateTask(ctx, req.task(claims.UserID))
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to create task", Error: err.Error()})
		}
		return c.JSON(http.StatusCreated, taskEnvelope{Message: "Task created successfully", Data: task})
	}
}

func getTask(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		claims, err := auth.ClaimsFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
		}

		task, err := store.TaskByID(ctx, claims.UserID, c.Param("id"))
		if err != nil {
			return taskError(c, err, "Failed to fetch task")
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTask(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		claims, err := auth.ClaimsFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
		}

		var req taskUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if errs := req.validate(); errs != nil {
			return c.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		}

		task, err := store.UpdateTask(ctx, claims.UserID, c.Param("id"), req.patch())
		if err != nil {
			return taskError(c, err, "Failed to update task")
		}
		return c.JSON(http.StatusOK, taskEnvelope{Message: "Task updated successfully", Data: task})
	}
}

func deleteTask(store Store, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		claims, err := auth.ClaimsFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, messageResponse{Message: err.Error()})
		}

		if err := store.DeleteTask(ctx, claims.UserID, c.Param("id")); err != nil {
			return taskError(c, err, "Failed to delete task")
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Task deleted successfully"})
	}
}
