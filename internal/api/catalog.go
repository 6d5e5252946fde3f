package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CreateProcedureRequest is the body of POST /procedures.
type CreateProcedureRequest struct {
	TemplateID *string `json:"template_id,omitempty"`
	CustomName string  `json:"custom_name"`
}

// CreateProcessRequest is the body of POST /procedures/:id/processes.
type CreateProcessRequest struct {
	Name string `json:"name"`
}

// CreateActionRequest is the body of POST /processes/:id/actions.
type CreateActionRequest struct {
	Name          string  `json:"name"`
	Instructions  string  `json:"instructions"`
	DefaultRoleID *string `json:"default_role_id,omitempty"`
}

// UpdateActionRequest is the body of PATCH /actions/:id.
type UpdateActionRequest struct {
	Name          string  `json:"name"`
	Instructions  string  `json:"instructions"`
	DefaultRoleID *string `json:"default_role_id,omitempty"`
}

// ListTemplates returns the standard procedure templates.
// (GET /api/v1/templates)
func (s *Server) ListTemplates(c echo.Context) error {
	ctx := c.Request().Context()

	templates, err := s.Catalog.ListTemplates(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, templates)
}

// CreateProcedure derives a customized procedure for the caller's tenant.
// (POST /api/v1/procedures)
func (s *Server) CreateProcedure(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req CreateProcedureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	proc, err := s.Catalog.CreateProcedure(ctx, tenant, req.TemplateID, req.CustomName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, proc)
}

// ListProcedures returns the tenant's customized procedures.
// (GET /api/v1/procedures)
func (s *Server) ListProcedures(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	procs, err := s.Catalog.ListProcedures(ctx, tenant)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, procs)
}

// GetProcedure returns one procedure.
// (GET /api/v1/procedures/:id)
func (s *Server) GetProcedure(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	proc, err := s.Catalog.GetProcedure(ctx, tenant, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, proc)
}

// DeleteProcedure removes a procedure that has no instances.
// (DELETE /api/v1/procedures/:id)
func (s *Server) DeleteProcedure(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	if err := s.Catalog.DeleteProcedure(ctx, tenant, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateProcess appends a process to a procedure.
// (POST /api/v1/procedures/:id/processes)
func (s *Server) CreateProcess(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req CreateProcessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	proc, err := s.Catalog.AddProcess(ctx, tenant, c.Param("id"), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, proc)
}

// ListProcesses returns a procedure's processes in order.
// (GET /api/v1/procedures/:id/processes)
func (s *Server) ListProcesses(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	procs, err := s.Catalog.ListProcesses(ctx, tenant, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, procs)
}

// UpdateProcess renames a process.
// (PATCH /api/v1/processes/:id)
func (s *Server) UpdateProcess(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req CreateProcessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	if err := s.Catalog.UpdateProcess(ctx, tenant, c.Param("id"), req.Name); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteProcess removes a process and its actions.
// (DELETE /api/v1/processes/:id)
func (s *Server) DeleteProcess(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	if err := s.Catalog.DeleteProcess(ctx, tenant, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateAction appends an action to a process.
// (POST /api/v1/processes/:id/actions)
func (s *Server) CreateAction(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req CreateActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	action, err := s.Catalog.AddAction(ctx, tenant, c.Param("id"), req.Name, req.Instructions, req.DefaultRoleID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, action)
}

// ListActions returns a process's actions in order.
// (GET /api/v1/processes/:id/actions)
func (s *Server) ListActions(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	actions, err := s.Catalog.ListActionsForProcess(ctx, tenant, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, actions)
}

// UpdateAction updates an action.
// (PATCH /api/v1/actions/:id)
func (s *Server) UpdateAction(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	var req UpdateActionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	if err := s.Catalog.UpdateAction(ctx, tenant, c.Param("id"), req.Name, req.Instructions, req.DefaultRoleID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAction removes an action.
// (DELETE /api/v1/actions/:id)
func (s *Server) DeleteAction(c echo.Context) error {
	ctx := c.Request().Context()
	tenant, err := tenantID(c)
	if err != nil {
		return err
	}

	if err := s.Catalog.DeleteAction(ctx, tenant, c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
