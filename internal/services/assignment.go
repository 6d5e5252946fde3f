package services

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"ppa/backend/internal/apperr"
	"ppa/backend/internal/directory"
	"ppa/backend/internal/repository"
	"ppa/backend/pkg/models"
)

// AssignmentService is the default-assignment resolver and the
// instantiation/assignment engine.
type AssignmentService struct {
	repo             repository.Repository
	dir              directory.Directory
	registry         directory.EntityRegistry
	instancesCreated metric.Int64Counter
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(repo repository.Repository, dir directory.Directory, registry directory.EntityRegistry) *AssignmentService {
	meter := otel.Meter("ppa/backend/services")
	counter, _ := meter.Int64Counter("ppa.instances.created")

	return &AssignmentService{
		repo:             repo,
		dir:              dir,
		registry:         registry,
		instancesCreated: counter,
	}
}

// ProposeDefaults computes the default assignee for every action of a
// procedure. An action whose default role resolves to exactly one user is
// proposed that user; zero or multiple matches leave the proposal empty and
// the action must be assigned manually. Proposals preserve the procedure's
// (process.order, action.order) order and are deterministic for an unchanged
// directory.
func (s *AssignmentService) ProposeDefaults(ctx context.Context, tenantID, procedureID string) ([]*models.ActionProposal, error) {
	actions, err := s.repo.ListProcedureActions(ctx, tenantID, procedureID)
	if err != nil {
		return nil, err
	}

	proposals := make([]*models.ActionProposal, 0, len(actions))
	for _, a := range actions {
		p := &models.ActionProposal{
			ActionID:    a.ID,
			ActionName:  a.Name,
			ProcessName: a.ProcessName,
		}
		if a.DefaultRoleID != nil {
			users, err := s.dir.UsersWithRole(ctx, *a.DefaultRoleID)
			if err != nil {
				return nil, err
			}
			if len(users) == 1 {
				p.ProposedUserID = &users[0]
			}
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

// AssignProcedure validates a complete per-action assignment map and creates
// a procedure instance atomically. Validation runs in order: the procedure
// must have at least one action, the target entity must resolve, the map must
// cover exactly the procedure's action set, and every assignee must exist in
// the directory. Nothing is written until all preconditions hold.
func (s *AssignmentService) AssignProcedure(ctx context.Context, tenantID, procedureID, targetEntityID string, dueDate *time.Time, assignments map[string]string) (*models.ProcedureInstance, error) {
	actions, err := s.repo.ListProcedureActions(ctx, tenantID, procedureID)
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, apperr.Validation("empty procedure", procedureID)
	}

	ok, err := s.registry.EntityExists(ctx, tenantID, targetEntityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("target entity", targetEntityID)
	}

	if unresolved := incompleteActions(actions, assignments); len(unresolved) > 0 {
		return nil, apperr.Validation("incomplete assignment", unresolved...)
	}

	for _, a := range actions {
		userID := assignments[a.ID]
		exists, err := s.dir.UserExists(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound("assignee for action "+a.ID, userID)
		}
	}

	inst := &models.ProcedureInstance{
		ProcedureID:    procedureID,
		TenantID:       tenantID,
		TargetEntityID: targetEntityID,
		DueDate:        dueDate,
	}
	if err := s.repo.CreateInstance(ctx, inst, assignments); err != nil {
		return nil, err
	}

	s.instancesCreated.Add(ctx, 1)
	return inst, nil
}

// incompleteActions returns the action ids missing from the map plus the map
// keys that name no action, sorted for stable error output.
func incompleteActions(actions []*models.ProcedureAction, assignments map[string]string) []string {
	var unresolved []string
	known := make(map[string]bool, len(actions))
	for _, a := range actions {
		known[a.ID] = true
		if _, ok := assignments[a.ID]; !ok {
			unresolved = append(unresolved, a.ID)
		}
	}
	for id := range assignments {
		if !known[id] {
			unresolved = append(unresolved, id)
		}
	}
	sort.Strings(unresolved)
	return unresolved
}

// MarkStarted records that execution of some action of the instance has
// begun. Safe to repeat.
func (s *AssignmentService) MarkStarted(ctx context.Context, tenantID, instanceID string) error {
	return s.repo.MarkInstanceStarted(ctx, tenantID, instanceID)
}

// MarkCompleted closes an instance once every snapshotted action is done.
func (s *AssignmentService) MarkCompleted(ctx context.Context, tenantID, instanceID string) error {
	return s.repo.MarkInstanceCompleted(ctx, tenantID, instanceID)
}

// MarkActionDone records the external tracker's signal that one action of an
// instance has been executed.
func (s *AssignmentService) MarkActionDone(ctx context.Context, tenantID, instanceID, actionID string) error {
	return s.repo.MarkInstanceActionDone(ctx, tenantID, instanceID, actionID)
}
