// Package api contains the HTTP handlers for the PPA service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ppa/backend/internal/apperr"
	"ppa/backend/internal/services"
)

// Server holds the dependencies for the API handlers.
type Server struct {
	Catalog     *services.CatalogService
	Assignments *services.AssignmentService
	Tracker     *services.TrackerService
}

// NewServer creates a new Server.
func NewServer(catalog *services.CatalogService, assignments *services.AssignmentService, tracker *services.TrackerService) *Server {
	return &Server{Catalog: catalog, Assignments: assignments, Tracker: tracker}
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "ppa-backend",
		Version:   "1.0.0",
	})
}

// ProblemDetails represents an RFC 7807 Problem Details response. IDs carries
// the offending entity ids when the failing operation can name them, so the
// caller can correct the input and retry.
type ProblemDetails struct {
	Type   string   `json:"type"`
	Title  string   `json:"title"`
	Status int      `json:"status"`
	Detail string   `json:"detail,omitempty"`
	IDs    []string `json:"ids,omitempty"`
}

// respondError maps the business-error taxonomy onto HTTP statuses and writes
// an RFC 7807 response.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	title := "Internal Server Error"

	var ae *apperr.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperr.KindValidation:
			status, title = http.StatusBadRequest, "Validation Failed"
		case apperr.KindNotFound:
			status, title = http.StatusNotFound, "Not Found"
		case apperr.KindConflict:
			status, title = http.StatusConflict, "Conflict"
		case apperr.KindStorage:
			status, title = http.StatusInternalServerError, "Storage Failure"
		}
	}

	problem := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
	}
	if ae != nil {
		problem.Detail = ae.Message
		problem.IDs = ae.IDs
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	c.Response().WriteHeader(status)
	return json.NewEncoder(c.Response()).Encode(problem)
}

// tenantID extracts the tenant injected by the auth middleware.
func tenantID(c echo.Context) (string, error) {
	id, ok := c.Request().Context().Value("tenant_id").(string)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "tenant not resolved")
	}
	return id, nil
}
