package repository

import (
	"context"

	"ppa/backend/pkg/models"
)

// Repository is the persistence boundary of the PPA core. Implementations
// return apperr-typed errors: not-found for unknown or tenant-invisible ids,
// conflict for invariant violations, storage for database failures.
type Repository interface {
	Ping(ctx context.Context) error

	// Tenants
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	CreateTenant(ctx context.Context, tenant *models.Tenant) error

	// Template catalog
	ListTemplates(ctx context.Context) ([]*models.ProcedureTemplate, error)
	GetTemplate(ctx context.Context, id string) (*models.ProcedureTemplate, error)
	CreateTemplate(ctx context.Context, tpl *models.ProcedureTemplate) error

	// Procedures and their process/action aggregate. Every query is
	// tenant-scoped; ids from other tenants behave as unknown.
	CreateProcedure(ctx context.Context, proc *models.Procedure) error
	GetProcedure(ctx context.Context, tenantID, id string) (*models.Procedure, error)
	ListProcedures(ctx context.Context, tenantID string) ([]*models.Procedure, error)
	DeleteProcedure(ctx context.Context, tenantID, id string) error

	CreateProcess(ctx context.Context, tenantID string, proc *models.Process) error
	RenameProcess(ctx context.Context, tenantID, processID, name string) error
	DeleteProcess(ctx context.Context, tenantID, processID string) error
	ListProcesses(ctx context.Context, tenantID, procedureID string) ([]*models.Process, error)

	CreateAction(ctx context.Context, tenantID string, action *models.Action) error
	UpdateAction(ctx context.Context, tenantID, actionID, name, instructions string, defaultRoleID *string) error
	DeleteAction(ctx context.Context, tenantID, actionID string) error
	ListActionsForProcess(ctx context.Context, tenantID, processID string) ([]*models.Action, error)
	// ListProcedureActions returns the full action set of a procedure in
	// (process.order, action.order) order.
	ListProcedureActions(ctx context.Context, tenantID, procedureID string) ([]*models.ProcedureAction, error)

	// Instances. CreateInstance commits the instance, its action snapshot
	// and one assignment per action atomically; the action set is re-read
	// inside the transaction and compared with the assignment map, so a
	// concurrent catalog edit fails with a conflict instead of corrupting
	// the snapshot.
	CreateInstance(ctx context.Context, inst *models.ProcedureInstance, assignments map[string]string) error
	GetInstance(ctx context.Context, tenantID, id string) (*models.ProcedureInstance, error)
	ListInstances(ctx context.Context, tenantID string, limit, offset int) ([]*models.InstanceSummary, error)
	ListInstanceActions(ctx context.Context, tenantID, instanceID string) ([]*models.InstanceAction, error)
	GetTeamUserIDs(ctx context.Context, tenantID, instanceID string) ([]string, error)

	MarkInstanceStarted(ctx context.Context, tenantID, instanceID string) error
	MarkInstanceCompleted(ctx context.Context, tenantID, instanceID string) error
	MarkInstanceActionDone(ctx context.Context, tenantID, instanceID, actionID string) error
}
