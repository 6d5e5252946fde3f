// Package services implements the PPA core operations on top of the
// repository and the external directory/registry collaborators.
package services

import (
	"context"
	"strings"

	"ppa/backend/internal/apperr"
	"ppa/backend/internal/repository"
	"ppa/backend/pkg/models"
)

// CatalogService manages the template catalog and the tenant-owned
// procedure/process/action aggregate.
type CatalogService struct {
	repo repository.Repository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repository.Repository) *CatalogService {
	return &CatalogService{repo: repo}
}

// ListTemplates returns the standard procedure templates.
func (s *CatalogService) ListTemplates(ctx context.Context) ([]*models.ProcedureTemplate, error) {
	return s.repo.ListTemplates(ctx)
}

// CreateProcedure derives a new customized procedure, optionally from a
// template. The procedure starts with zero processes.
func (s *CatalogService) CreateProcedure(ctx context.Context, tenantID string, templateID *string, customName string) (*models.Procedure, error) {
	if strings.TrimSpace(customName) == "" {
		return nil, apperr.Validation("empty name")
	}
	if templateID != nil {
		if _, err := s.repo.GetTemplate(ctx, *templateID); err != nil {
			return nil, err
		}
	}

	proc := &models.Procedure{
		TemplateID: templateID,
		TenantID:   tenantID,
		CustomName: strings.TrimSpace(customName),
	}
	if err := s.repo.CreateProcedure(ctx, proc); err != nil {
		return nil, err
	}
	return proc, nil
}

// GetProcedure retrieves one procedure.
func (s *CatalogService) GetProcedure(ctx context.Context, tenantID, id string) (*models.Procedure, error) {
	return s.repo.GetProcedure(ctx, tenantID, id)
}

// ListProcedures returns the tenant's procedures.
func (s *CatalogService) ListProcedures(ctx context.Context, tenantID string) ([]*models.Procedure, error) {
	return s.repo.ListProcedures(ctx, tenantID)
}

// DeleteProcedure removes a procedure that has no instances.
func (s *CatalogService) DeleteProcedure(ctx context.Context, tenantID, id string) error {
	return s.repo.DeleteProcedure(ctx, tenantID, id)
}

// AddProcess appends a process to a procedure.
func (s *CatalogService) AddProcess(ctx context.Context, tenantID, procedureID, name string) (*models.Process, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("empty name")
	}
	proc := &models.Process{ProcedureID: procedureID, Name: strings.TrimSpace(name)}
	if err := s.repo.CreateProcess(ctx, tenantID, proc); err != nil {
		return nil, err
	}
	return proc, nil
}

// UpdateProcess renames a process.
func (s *CatalogService) UpdateProcess(ctx context.Context, tenantID, processID, name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("empty name")
	}
	return s.repo.RenameProcess(ctx, tenantID, processID, strings.TrimSpace(name))
}

// DeleteProcess removes a process unless an open instance still references
// one of its actions.
func (s *CatalogService) DeleteProcess(ctx context.Context, tenantID, processID string) error {
	return s.repo.DeleteProcess(ctx, tenantID, processID)
}

// ListProcesses returns a procedure's processes in order.
func (s *CatalogService) ListProcesses(ctx context.Context, tenantID, procedureID string) ([]*models.Process, error) {
	return s.repo.ListProcesses(ctx, tenantID, procedureID)
}

// AddAction appends an action to a process.
func (s *CatalogService) AddAction(ctx context.Context, tenantID, processID, name, instructions string, defaultRoleID *string) (*models.Action, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("empty name")
	}
	action := &models.Action{
		ProcessID:     processID,
		Name:          strings.TrimSpace(name),
		Instructions:  instructions,
		DefaultRoleID: defaultRoleID,
	}
	if err := s.repo.CreateAction(ctx, tenantID, action); err != nil {
		return nil, err
	}
	return action, nil
}

// UpdateAction updates an action's name, instructions and default role.
func (s *CatalogService) UpdateAction(ctx context.Context, tenantID, actionID, name, instructions string, defaultRoleID *string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("empty name")
	}
	return s.repo.UpdateAction(ctx, tenantID, actionID, strings.TrimSpace(name), instructions, defaultRoleID)
}

// DeleteAction removes an action unless an open instance still references it.
func (s *CatalogService) DeleteAction(ctx context.Context, tenantID, actionID string) error {
	return s.repo.DeleteAction(ctx, tenantID, actionID)
}

// ListActionsForProcess returns a process's actions in order.
func (s *CatalogService) ListActionsForProcess(ctx context.Context, tenantID, processID string) ([]*models.Action, error) {
	return s.repo.ListActionsForProcess(ctx, tenantID, processID)
}
