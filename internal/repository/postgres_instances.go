package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ppa/backend/internal/apperr"
	"ppa/backend/pkg/models"
)

// CreateInstance commits a procedure instance, its action snapshot and one
// assignment per action as a single transaction. The procedure's action set
// is re-read inside the transaction and compared with the assignment map; any
// mismatch means the catalog changed after the caller validated, and the
// whole operation fails with a conflict leaving no partial rows behind.
func (r *PostgresRepository) CreateInstance(ctx context.Context, inst *models.ProcedureInstance, assignments map[string]string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Storage("begin instantiation", err)
	}
	defer tx.Rollback(ctx)

	actions, err := listProcedureActions(ctx, tx, inst.ProcedureID)
	if err != nil {
		return err
	}
	if mismatched := diffAssignments(actions, assignments); len(mismatched) > 0 {
		return apperr.Conflict("procedure changed during assignment", mismatched...)
	}

	if inst.ID == "" {
		inst.ID = uuid.New().String()
	}
	inst.StartDate = time.Now()
	inst.Status = models.InstanceStatusNotStarted

	_, err = tx.Exec(ctx,
		`INSERT INTO procedure_instances (id, procedure_id, tenant_id, target_entity_id, start_date, due_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inst.ID, inst.ProcedureID, inst.TenantID, inst.TargetEntityID, inst.StartDate, inst.DueDate, inst.Status,
	)
	if err != nil {
		return apperr.Storage("insert instance", err)
	}

	for i, a := range actions {
		snapshotID := uuid.New().String()
		_, err = tx.Exec(ctx,
			`INSERT INTO instance_actions (id, instance_id, action_id, process_name, name, instructions, ord)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			snapshotID, inst.ID, a.ID, a.ProcessName, a.Name, a.Instructions, i+1,
		)
		if err != nil {
			return apperr.Storage("insert instance action", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO assignments (id, instance_id, instance_action_id, assigned_user_id)
			 VALUES ($1, $2, $3, $4)`,
			uuid.New().String(), inst.ID, snapshotID, assignments[a.ID],
		)
		if err != nil {
			return apperr.Storage("insert assignment", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage("commit instantiation", err)
	}
	return nil
}

// diffAssignments returns the action ids present on exactly one side of the
// (procedure actions, assignment map) pair, sorted for stable error output.
func diffAssignments(actions []*models.ProcedureAction, assignments map[string]string) []string {
	var mismatched []string
	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		seen[a.ID] = true
		if _, ok := assignments[a.ID]; !ok {
			mismatched = append(mismatched, a.ID)
		}
	}
	for id := range assignments {
		if !seen[id] {
			mismatched = append(mismatched, id)
		}
	}
	sort.Strings(mismatched)
	return mismatched
}

// GetInstance retrieves an instance visible to the tenant.
func (r *PostgresRepository) GetInstance(ctx context.Context, tenantID, id string) (*models.ProcedureInstance, error) {
	var inst models.ProcedureInstance
	err := r.db.QueryRow(ctx,
		`SELECT id, procedure_id, tenant_id, target_entity_id, start_date, due_date, status
		 FROM procedure_instances WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&inst.ID, &inst.ProcedureID, &inst.TenantID, &inst.TargetEntityID, &inst.StartDate, &inst.DueDate, &inst.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("instance", id)
	}
	if err != nil {
		return nil, storageErr("get instance", err)
	}
	return &inst, nil
}

// ListInstances returns the tenant's instances ordered by start date
// descending. The target entity display name is resolved by the caller.
func (r *PostgresRepository) ListInstances(ctx context.Context, tenantID string, limit, offset int) ([]*models.InstanceSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT i.id, p.custom_name, i.target_entity_id, i.start_date, i.due_date, i.status
		 FROM procedure_instances i
		 JOIN procedures p ON p.id = i.procedure_id
		 WHERE i.tenant_id = $1
		 ORDER BY i.start_date DESC
		 LIMIT $2 OFFSET $3`,
		tenantID, limit, offset,
	)
	if err != nil {
		return nil, storageErr("list instances", err)
	}
	defer rows.Close()

	var summaries []*models.InstanceSummary
	for rows.Next() {
		var s models.InstanceSummary
		if err := rows.Scan(&s.ID, &s.ProcedureName, &s.TargetEntityID, &s.StartDate, &s.DueDate, &s.Status); err != nil {
			return nil, storageErr("scan instance summary", err)
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

// ListInstanceActions returns the snapshot of an instance in its frozen order.
func (r *PostgresRepository) ListInstanceActions(ctx context.Context, tenantID, instanceID string) ([]*models.InstanceAction, error) {
	if _, err := r.GetInstance(ctx, tenantID, instanceID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, instance_id, action_id, process_name, name, instructions, ord, done
		 FROM instance_actions WHERE instance_id = $1 ORDER BY ord`,
		instanceID,
	)
	if err != nil {
		return nil, storageErr("list instance actions", err)
	}
	defer rows.Close()

	var actions []*models.InstanceAction
	for rows.Next() {
		var a models.InstanceAction
		if err := rows.Scan(&a.ID, &a.InstanceID, &a.ActionID, &a.ProcessName, &a.Name, &a.Instructions, &a.Order, &a.Done); err != nil {
			return nil, storageErr("scan instance action", err)
		}
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}

// GetTeamUserIDs returns the distinct assignees of an instance, sorted for
// deterministic output.
func (r *PostgresRepository) GetTeamUserIDs(ctx context.Context, tenantID, instanceID string) ([]string, error) {
	if _, err := r.GetInstance(ctx, tenantID, instanceID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT assigned_user_id FROM assignments WHERE instance_id = $1 ORDER BY assigned_user_id`,
		instanceID,
	)
	if err != nil {
		return nil, storageErr("get team", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan team member", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// lockInstanceStatus reads the current status of an instance inside tx,
// blocking concurrent transitions on the same row.
func lockInstanceStatus(ctx context.Context, tx pgx.Tx, tenantID, instanceID string) (models.InstanceStatus, error) {
	var status models.InstanceStatus
	err := tx.QueryRow(ctx,
		`SELECT status FROM procedure_instances WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		instanceID, tenantID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("instance", instanceID)
	}
	if err != nil {
		return "", storageErr("lock instance", err)
	}
	return status, nil
}

// MarkInstanceStarted transitions an instance to in-progress. Idempotent:
// already started or completed instances are left untouched.
func (r *PostgresRepository) MarkInstanceStarted(ctx context.Context, tenantID, instanceID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Storage("begin transition", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockInstanceStatus(ctx, tx, tenantID, instanceID)
	if err != nil {
		return err
	}
	if status != models.InstanceStatusNotStarted {
		return nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE procedure_instances SET status = $1 WHERE id = $2`,
		models.InstanceStatusInProgress, instanceID,
	)
	if err != nil {
		return apperr.Storage("mark started", err)
	}
	return tx.Commit(ctx)
}

// MarkInstanceCompleted transitions an instance to completed. Fails with a
// conflict while any snapshotted action is still open; idempotent once
// completed.
func (r *PostgresRepository) MarkInstanceCompleted(ctx context.Context, tenantID, instanceID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Storage("begin transition", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockInstanceStatus(ctx, tx, tenantID, instanceID)
	if err != nil {
		return err
	}
	if status == models.InstanceStatusCompleted {
		return nil
	}

	rows, err := tx.Query(ctx,
		`SELECT action_id FROM instance_actions WHERE instance_id = $1 AND done = FALSE ORDER BY ord`,
		instanceID,
	)
	if err != nil {
		return storageErr("check open actions", err)
	}
	var open []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return storageErr("scan open action", err)
		}
		open = append(open, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storageErr("check open actions", err)
	}
	if len(open) > 0 {
		return apperr.Conflict("instance has open actions", open...)
	}

	_, err = tx.Exec(ctx,
		`UPDATE procedure_instances SET status = $1 WHERE id = $2`,
		models.InstanceStatusCompleted, instanceID,
	)
	if err != nil {
		return apperr.Storage("mark completed", err)
	}
	return tx.Commit(ctx)
}

// MarkInstanceActionDone records the external tracker's signal that one
// snapshotted action has been executed. Idempotent per action.
func (r *PostgresRepository) MarkInstanceActionDone(ctx context.Context, tenantID, instanceID, actionID string) error {
	if _, err := r.GetInstance(ctx, tenantID, instanceID); err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE instance_actions SET done = TRUE WHERE instance_id = $1 AND action_id = $2`,
		instanceID, actionID,
	)
	if err != nil {
		return storageErr("mark action done", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("instance action", actionID)
	}
	return nil
}
