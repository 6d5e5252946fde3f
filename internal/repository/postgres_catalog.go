package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ppa/backend/internal/apperr"
	"ppa/backend/pkg/models"
)

// CreateProcedure inserts a tenant-owned procedure with zero processes.
func (r *PostgresRepository) CreateProcedure(ctx context.Context, proc *models.Procedure) error {
	if proc.ID == "" {
		proc.ID = uuid.New().String()
	}
	now := time.Now()
	proc.CreatedAt = now
	proc.UpdatedAt = now
	_, err := r.db.Exec(ctx,
		`INSERT INTO procedures (id, template_id, tenant_id, custom_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		proc.ID, proc.TemplateID, proc.TenantID, proc.CustomName, proc.CreatedAt, proc.UpdatedAt,
	)
	if err != nil {
		return storageErr("create procedure", err)
	}
	return nil
}

// GetProcedure retrieves a procedure visible to the tenant.
func (r *PostgresRepository) GetProcedure(ctx context.Context, tenantID, id string) (*models.Procedure, error) {
	var p models.Procedure
	err := r.db.QueryRow(ctx,
		`SELECT id, template_id, tenant_id, custom_name, created_at, updated_at
		 FROM procedures WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&p.ID, &p.TemplateID, &p.TenantID, &p.CustomName, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("procedure", id)
	}
	if err != nil {
		return nil, storageErr("get procedure", err)
	}
	return &p, nil
}

// ListProcedures returns the tenant's customized procedures.
func (r *PostgresRepository) ListProcedures(ctx context.Context, tenantID string) ([]*models.Procedure, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, template_id, tenant_id, custom_name, created_at, updated_at
		 FROM procedures WHERE tenant_id = $1 ORDER BY custom_name`,
		tenantID,
	)
	if err != nil {
		return nil, storageErr("list procedures", err)
	}
	defer rows.Close()

	var procs []*models.Procedure
	for rows.Next() {
		var p models.Procedure
		if err := rows.Scan(&p.ID, &p.TemplateID, &p.TenantID, &p.CustomName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, storageErr("scan procedure", err)
		}
		procs = append(procs, &p)
	}
	return procs, rows.Err()
}

// DeleteProcedure removes a procedure. Fails with a conflict while any
// instance still references it.
func (r *PostgresRepository) DeleteProcedure(ctx context.Context, tenantID, id string) error {
	if _, err := r.GetProcedure(ctx, tenantID, id); err != nil {
		return err
	}

	var instances bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM procedure_instances WHERE procedure_id = $1)`, id,
	).Scan(&instances)
	if err != nil {
		return storageErr("check procedure instances", err)
	}
	if instances {
		return apperr.Conflict("procedure has instances", id)
	}

	_, err = r.db.Exec(ctx, `DELETE FROM procedures WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return storageErr("delete procedure", err)
	}
	return nil
}

// CreateProcess appends a process to a procedure with order max(existing)+1.
func (r *PostgresRepository) CreateProcess(ctx context.Context, tenantID string, proc *models.Process) error {
	if _, err := r.GetProcedure(ctx, tenantID, proc.ProcedureID); err != nil {
		return err
	}

	if proc.ID == "" {
		proc.ID = uuid.New().String()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO processes (id, procedure_id, name, ord)
		 SELECT $1, $2, $3, COALESCE(MAX(ord), 0) + 1 FROM processes WHERE procedure_id = $2
		 RETURNING ord, created_at, updated_at`,
		proc.ID, proc.ProcedureID, proc.Name,
	).Scan(&proc.Order, &proc.CreatedAt, &proc.UpdatedAt)
	if err != nil {
		return storageErr("create process", err)
	}
	return nil
}

// RenameProcess renames a process. Order is never changed here; appending is
// the only ordering operation.
func (r *PostgresRepository) RenameProcess(ctx context.Context, tenantID, processID, name string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE processes SET name = $1, updated_at = now()
		 WHERE id = $2 AND procedure_id IN (SELECT id FROM procedures WHERE tenant_id = $3)`,
		name, processID, tenantID,
	)
	if err != nil {
		return storageErr("rename process", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("process", processID)
	}
	return nil
}

// DeleteProcess removes a process and its actions. Fails with a conflict
// while any non-terminal instance snapshot still references one of its
// actions.
func (r *PostgresRepository) DeleteProcess(ctx context.Context, tenantID, processID string) error {
	if err := r.checkProcess(ctx, tenantID, processID); err != nil {
		return err
	}

	var referenced bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM instance_actions ia
			JOIN procedure_instances i ON i.id = ia.instance_id
			WHERE i.status <> 'completed'
			  AND ia.action_id IN (SELECT id FROM actions WHERE process_id = $1)
		)`, processID,
	).Scan(&referenced)
	if err != nil {
		return storageErr("check process references", err)
	}
	if referenced {
		return apperr.Conflict("process referenced by open instances", processID)
	}

	_, err = r.db.Exec(ctx, `DELETE FROM processes WHERE id = $1`, processID)
	if err != nil {
		return storageErr("delete process", err)
	}
	return nil
}

// ListProcesses returns a procedure's processes in order.
func (r *PostgresRepository) ListProcesses(ctx context.Context, tenantID, procedureID string) ([]*models.Process, error) {
	if _, err := r.GetProcedure(ctx, tenantID, procedureID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, procedure_id, name, ord, created_at, updated_at
		 FROM processes WHERE procedure_id = $1 ORDER BY ord`,
		procedureID,
	)
	if err != nil {
		return nil, storageErr("list processes", err)
	}
	defer rows.Close()

	var procs []*models.Process
	for rows.Next() {
		var p models.Process
		if err := rows.Scan(&p.ID, &p.ProcedureID, &p.Name, &p.Order, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, storageErr("scan process", err)
		}
		procs = append(procs, &p)
	}
	return procs, rows.Err()
}

func (r *PostgresRepository) checkProcess(ctx context.Context, tenantID, processID string) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM processes p
			JOIN procedures pr ON pr.id = p.procedure_id
			WHERE p.id = $1 AND pr.tenant_id = $2
		)`, processID, tenantID,
	).Scan(&exists)
	if err != nil {
		return storageErr("check process", err)
	}
	if !exists {
		return apperr.NotFound("process", processID)
	}
	return nil
}

// CreateAction appends an action to a process with order max(existing)+1.
func (r *PostgresRepository) CreateAction(ctx context.Context, tenantID string, action *models.Action) error {
	if err := r.checkProcess(ctx, tenantID, action.ProcessID); err != nil {
		return err
	}

	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO actions (id, process_id, name, instructions, default_role_id, ord)
		 SELECT $1, $2, $3, $4, $5, COALESCE(MAX(ord), 0) + 1 FROM actions WHERE process_id = $2
		 RETURNING ord, created_at, updated_at`,
		action.ID, action.ProcessID, action.Name, action.Instructions, action.DefaultRoleID,
	).Scan(&action.Order, &action.CreatedAt, &action.UpdatedAt)
	if err != nil {
		return storageErr("create action", err)
	}
	return nil
}

// UpdateAction updates the mutable fields of an action.
func (r *PostgresRepository) UpdateAction(ctx context.Context, tenantID, actionID, name, instructions string, defaultRoleID *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE actions SET name = $1, instructions = $2, default_role_id = $3, updated_at = now()
		 WHERE id = $4 AND process_id IN (
			SELECT p.id FROM processes p
			JOIN procedures pr ON pr.id = p.procedure_id
			WHERE pr.tenant_id = $5
		 )`,
		name, instructions, defaultRoleID, actionID, tenantID,
	)
	if err != nil {
		return storageErr("update action", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("action", actionID)
	}
	return nil
}

// DeleteAction removes an action, with the same reference guard as
// DeleteProcess.
func (r *PostgresRepository) DeleteAction(ctx context.Context, tenantID, actionID string) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM actions a
			JOIN processes p ON p.id = a.process_id
			JOIN procedures pr ON pr.id = p.procedure_id
			WHERE a.id = $1 AND pr.tenant_id = $2
		)`, actionID, tenantID,
	).Scan(&exists)
	if err != nil {
		return storageErr("check action", err)
	}
	if !exists {
		return apperr.NotFound("action", actionID)
	}

	var referenced bool
	err = r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM instance_actions ia
			JOIN procedure_instances i ON i.id = ia.instance_id
			WHERE ia.action_id = $1 AND i.status <> 'completed'
		)`, actionID,
	).Scan(&referenced)
	if err != nil {
		return storageErr("check action references", err)
	}
	if referenced {
		return apperr.Conflict("action referenced by open instances", actionID)
	}

	_, err = r.db.Exec(ctx, `DELETE FROM actions WHERE id = $1`, actionID)
	if err != nil {
		return storageErr("delete action", err)
	}
	return nil
}

// ListActionsForProcess returns a process's actions in order.
func (r *PostgresRepository) ListActionsForProcess(ctx context.Context, tenantID, processID string) ([]*models.Action, error) {
	if err := r.checkProcess(ctx, tenantID, processID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, process_id, name, instructions, default_role_id, ord, created_at, updated_at
		 FROM actions WHERE process_id = $1 ORDER BY ord`,
		processID,
	)
	if err != nil {
		return nil, storageErr("list actions", err)
	}
	defer rows.Close()

	var actions []*models.Action
	for rows.Next() {
		var a models.Action
		if err := rows.Scan(&a.ID, &a.ProcessID, &a.Name, &a.Instructions, &a.DefaultRoleID, &a.Order, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, storageErr("scan action", err)
		}
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}

// ListProcedureActions returns the full action set of a procedure in
// (process.order, action.order) order.
func (r *PostgresRepository) ListProcedureActions(ctx context.Context, tenantID, procedureID string) ([]*models.ProcedureAction, error) {
	if _, err := r.GetProcedure(ctx, tenantID, procedureID); err != nil {
		return nil, err
	}
	return listProcedureActions(ctx, r.db, procedureID)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so ordered action
// reads can run inside the instantiation transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listProcedureActions(ctx context.Context, q querier, procedureID string) ([]*models.ProcedureAction, error) {
	rows, err := q.Query(ctx,
		`SELECT a.id, a.process_id, a.name, a.instructions, a.default_role_id, a.ord,
		        a.created_at, a.updated_at, p.name
		 FROM actions a
		 JOIN processes p ON p.id = a.process_id
		 WHERE p.procedure_id = $1
		 ORDER BY p.ord, a.ord`,
		procedureID,
	)
	if err != nil {
		return nil, storageErr("list procedure actions", err)
	}
	defer rows.Close()

	var actions []*models.ProcedureAction
	for rows.Next() {
		var a models.ProcedureAction
		if err := rows.Scan(&a.ID, &a.ProcessID, &a.Name, &a.Instructions, &a.DefaultRoleID, &a.Order,
			&a.CreatedAt, &a.UpdatedAt, &a.ProcessName); err != nil {
			return nil, storageErr("scan procedure action", err)
		}
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}
