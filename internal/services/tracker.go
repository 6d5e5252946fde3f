package services

import (
	"context"

	"ppa/backend/internal/directory"
	"ppa/backend/internal/repository"
	"ppa/backend/pkg/models"
)

const defaultInstancePageSize = 100

// TrackerService is the read side of the archive view: committed instances
// with derived status and the derived team per instance.
type TrackerService struct {
	repo     repository.Repository
	dir      directory.Directory
	registry directory.EntityRegistry
}

// NewTrackerService creates a new TrackerService.
func NewTrackerService(repo repository.Repository, dir directory.Directory, registry directory.EntityRegistry) *TrackerService {
	return &TrackerService{repo: repo, dir: dir, registry: registry}
}

// ListInstances returns the tenant's instances ordered by start date
// descending, enriched with the target entity display name. A registry
// lookup failure falls back to the raw entity id so the archive stays
// readable when the registry is degraded.
func (s *TrackerService) ListInstances(ctx context.Context, tenantID string, limit, offset int) ([]*models.InstanceSummary, error) {
	if limit <= 0 {
		limit = defaultInstancePageSize
	}
	if offset < 0 {
		offset = 0
	}

	summaries, err := s.repo.ListInstances(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}

	for _, summary := range summaries {
		name, err := s.registry.EntityDisplayName(ctx, summary.TargetEntityID)
		if err != nil || name == "" {
			name = summary.TargetEntityID
		}
		summary.TargetEntityName = name
	}
	return summaries, nil
}

// ListInstanceActions returns the frozen action snapshot of an instance.
func (s *TrackerService) ListInstanceActions(ctx context.Context, tenantID, instanceID string) ([]*models.InstanceAction, error) {
	return s.repo.ListInstanceActions(ctx, tenantID, instanceID)
}

// GetTeam returns the distinct set of users assigned across an instance's
// assignments, with display attributes from the directory. Users the
// directory no longer knows are reported with their id only.
func (s *TrackerService) GetTeam(ctx context.Context, tenantID, instanceID string) ([]*models.TeamMember, error) {
	userIDs, err := s.repo.GetTeamUserIDs(ctx, tenantID, instanceID)
	if err != nil {
		return nil, err
	}

	team := make([]*models.TeamMember, 0, len(userIDs))
	for _, id := range userIDs {
		member := &models.TeamMember{UserID: id}
		if info, err := s.dir.UserDisplayInfo(ctx, id); err == nil {
			member.DisplayName = info.DisplayName
			member.Email = info.Email
		}
		team = append(team, member)
	}
	return team, nil
}
