package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// AssignProcedureRequest is the body of POST /procedures/:id/assign.
// Assignments maps every action id of the procedure to the chosen user id.
type AssignProcedureRequest struct {
	TargetEntityID string              `json:"target_entity_id"`
	DueDate        *openapi_types.Date `json:"due_date,omitempty"`
	Assignments    map[string]string   `json:"assignments"`
}

// AssignProcedureResponse carries the id of the created instance.
type AssignProcedureResponse struct {
	InstanceID string `json:"instance_id"`
}

// ProposeDefaults returns the default assignee proposed for every action of a
// procedure.
// (GET /api/v1/procedures/:id/defaults)
func (s *Server) ProposeDefaults(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	proposals, err := s.Assignments.ProposeDefaults(ctx, tenant, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, proposals)
}

// AssignProcedure creates a procedure instance from a complete assignment
// map. A validation failure enumerates every unresolved action id.
// (POST /api/v1/procedures/:id/assign)
func (s *Server) AssignProcedure(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req AssignProcedureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		dueDate = &req.DueDate.Time
	}

	inst, err := s.Assignments.AssignProcedure(ctx, tenant, c.Param("id"), req.TargetEntityID, dueDate, req.Assignments)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, AssignProcedureResponse{InstanceID: inst.ID})
}

// ListInstances returns the tenant's instances, newest first.
// (GET /api/v1/instances)
func (s *Server) ListInstances(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	summaries, err := s.Tracker.ListInstances(ctx, tenant, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

// ListInstanceActions returns the frozen action snapshot of an instance.
// (GET /api/v1/instances/:id/actions)
func (s *Server) ListInstanceActions(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	actions, err := s.Tracker.ListInstanceActions(ctx, tenant, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, actions)
}

// GetTeam returns the distinct assignees of an instance.
// (GET /api/v1/instances/:id/team)
func (s *Server) GetTeam(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	team, err := s.Tracker.GetTeam(ctx, tenant, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, team)
}

// MarkStarted transitions an instance to in-progress. Idempotent.
// (POST /api/v1/instances/:id/start)
func (s *Server) MarkStarted(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	if err := s.Assignments.MarkStarted(ctx, tenant, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkCompleted closes an instance once every action is done.
// (POST /api/v1/instances/:id/complete)
func (s *Server) MarkCompleted(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	if err := s.Assignments.MarkCompleted(ctx, tenant, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkActionDone records the execution tracker's signal for one action.
// (POST /api/v1/instances/:id/actions/:actionId/done)
func (s *Server) MarkActionDone(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	if err := s.Assignments.MarkActionDone(ctx, tenant, c.Param("id"), c.Param("actionId")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterHandlers mounts all PPA routes on the given group.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.GET("/templates", s.ListTemplates)

	g.POST("/procedures", s.CreateProcedure)
	g.GET("/procedures", s.ListProcedures)
	g.GET("/procedures/:id", s.GetProcedure)
	g.DELETE("/procedures/:id", s.DeleteProcedure)
	g.POST("/procedures/:id/processes", s.CreateProcess)
	g.GET("/procedures/:id/processes", s.ListProcesses)
	g.GET("/procedures/:id/defaults", s.ProposeDefaults)
	g.POST("/procedures/:id/assign", s.AssignProcedure)

	g.PATCH("/processes/:id", s.UpdateProcess)
	g.DELETE("/processes/:id", s.DeleteProcess)
	g.POST("/processes/:id/actions", s.CreateAction)
	g.GET("/processes/:id/actions", s.ListActions)

	g.PATCH("/actions/:id", s.UpdateAction)
	g.DELETE("/actions/:id", s.DeleteAction)

	g.GET("/instances", s.ListInstances)
	g.GET("/instances/:id/actions", s.ListInstanceActions)
	g.GET("/instances/:id/team", s.GetTeam)
	g.POST("/instances/:id/start", s.MarkStarted)
	g.POST("/instances/:id/complete", s.MarkCompleted)
	g.POST("/instances/:id/actions/:actionId/done", s.MarkActionDone)
}
