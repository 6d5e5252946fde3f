package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ppa/backend/internal/apperr"
	"ppa/backend/internal/directory"
	"ppa/backend/pkg/models"
)

// MockRepository satisfies repository.Repository. Only the methods exercised
// by the assignment engine carry expectations; the rest are plain stubs.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListProcedureActions(ctx context.Context, tenantID, procedureID string) ([]*models.ProcedureAction, error) {
	args := m.Called(ctx, tenantID, procedureID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ProcedureAction), args.Error(1)
}

func (m *MockRepository) CreateInstance(ctx context.Context, inst *models.ProcedureInstance, assignments map[string]string) error {
	args := m.Called(ctx, inst, assignments)
	return args.Error(0)
}

func (m *MockRepository) MarkInstanceStarted(ctx context.Context, tenantID, instanceID string) error {
	args := m.Called(ctx, tenantID, instanceID)
	return args.Error(0)
}

func (m *MockRepository) MarkInstanceCompleted(ctx context.Context, tenantID, instanceID string) error {
	args := m.Called(ctx, tenantID, instanceID)
	return args.Error(0)
}

func (m *MockRepository) MarkInstanceActionDone(ctx context.Context, tenantID, instanceID, actionID string) error {
	args := m.Called(ctx, tenantID, instanceID, actionID)
	return args.Error(0)
}

func (m *MockRepository) ListInstances(ctx context.Context, tenantID string, limit, offset int) ([]*models.InstanceSummary, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.InstanceSummary), args.Error(1)
}

func (m *MockRepository) GetTeamUserIDs(ctx context.Context, tenantID, instanceID string) ([]string, error) {
	args := m.Called(ctx, tenantID, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// Stubs to satisfy the rest of repository.Repository.
func (m *MockRepository) Ping(ctx context.Context) error { return nil }
func (m *MockRepository) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	return nil, nil
}
func (m *MockRepository) CreateTenant(ctx context.Context, tenant *models.Tenant) error { return nil }
func (m *MockRepository) ListTemplates(ctx context.Context) ([]*models.ProcedureTemplate, error) {
	return nil, nil
}
func (m *MockRepository) GetTemplate(ctx context.Context, id string) (*models.ProcedureTemplate, error) {
	return nil, nil
}
func (m *MockRepository) CreateTemplate(ctx context.Context, tpl *models.ProcedureTemplate) error {
	return nil
}
func (m *MockRepository) CreateProcedure(ctx context.Context, proc *models.Procedure) error {
	return nil
}
func (m *MockRepository) GetProcedure(ctx context.Context, tenantID, id string) (*models.Procedure, error) {
	return nil, nil
}
func (m *MockRepository) ListProcedures(ctx context.Context, tenantID string) ([]*models.Procedure, error) {
	return nil, nil
}
func (m *MockRepository) DeleteProcedure(ctx context.Context, tenantID, id string) error { return nil }
func (m *MockRepository) CreateProcess(ctx context.Context, tenantID string, proc *models.Process) error {
	return nil
}
func (m *MockRepository) RenameProcess(ctx context.Context, tenantID, processID, name string) error {
	return nil
}
func (m *MockRepository) DeleteProcess(ctx context.Context, tenantID, processID string) error {
	return nil
}
func (m *MockRepository) ListProcesses(ctx context.Context, tenantID, procedureID string) ([]*models.Process, error) {
	return nil, nil
}
func (m *MockRepository) CreateAction(ctx context.Context, tenantID string, action *models.Action) error {
	return nil
}
func (m *MockRepository) UpdateAction(ctx context.Context, tenantID, actionID, name, instructions string, defaultRoleID *string) error {
	return nil
}
func (m *MockRepository) DeleteAction(ctx context.Context, tenantID, actionID string) error {
	return nil
}
func (m *MockRepository) ListActionsForProcess(ctx context.Context, tenantID, processID string) ([]*models.Action, error) {
	return nil, nil
}
func (m *MockRepository) GetInstance(ctx context.Context, tenantID, id string) (*models.ProcedureInstance, error) {
	return nil, nil
}
func (m *MockRepository) ListInstanceActions(ctx context.Context, tenantID, instanceID string) ([]*models.InstanceAction, error) {
	return nil, nil
}

// MockDirectory satisfies directory.Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) UsersWithRole(ctx context.Context, roleID string) ([]string, error) {
	args := m.Called(ctx, roleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) UserDisplayInfo(ctx context.Context, userID string) (*directory.UserInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.UserInfo), args.Error(1)
}

// MockRegistry satisfies directory.EntityRegistry.
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) EntityExists(ctx context.Context, tenantID, entityID string) (bool, error) {
	args := m.Called(ctx, tenantID, entityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistry) EntityDisplayName(ctx context.Context, entityID string) (string, error) {
	args := m.Called(ctx, entityID)
	return args.String(0), args.Error(1)
}

func strptr(s string) *string { return &s }

// onboardingActions mirrors the "Client Onboarding" shape: two processes,
// three actions, two of them defaulting to the accountant role.
func onboardingActions() []*models.ProcedureAction {
	mk := func(id, process, name string, role *string) *models.ProcedureAction {
		return &models.ProcedureAction{
			Action:      models.Action{ID: id, Name: name, DefaultRoleID: role},
			ProcessName: process,
		}
	}
	return []*models.ProcedureAction{
		mk("a-vat", "Verification", "Check VAT", strptr("accountant")),
		mk("a-addr", "Verification", "Check address", nil),
		mk("a-ledger", "Setup", "Create ledger", strptr("accountant")),
	}
}

func TestProposeDefaults(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	dir := new(MockDirectory)

	repo.On("ListProcedureActions", mock.Anything, "t1", "p1").Return(onboardingActions(), nil)
	dir.On("UsersWithRole", mock.Anything, "accountant").Return([]string{"u1"}, nil)

	svc := NewAssignmentService(repo, dir, new(MockRegistry))

	proposals, err := svc.ProposeDefaults(ctx, "t1", "p1")
	require.NoError(t, err)
	require.Len(t, proposals, 3)

	// order preserved
	assert.Equal(t, "a-vat", proposals[0].ActionID)
	assert.Equal(t, "a-addr", proposals[1].ActionID)
	assert.Equal(t, "a-ledger", proposals[2].ActionID)

	// single directory match proposed, unbound action left open
	require.NotNil(t, proposals[0].ProposedUserID)
	assert.Equal(t, "u1", *proposals[0].ProposedUserID)
	assert.Nil(t, proposals[1].ProposedUserID)
	require.NotNil(t, proposals[2].ProposedUserID)
	assert.Equal(t, "u1", *proposals[2].ProposedUserID)
}

func TestProposeDefaultsAmbiguousRole(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	dir := new(MockDirectory)

	actions := []*models.ProcedureAction{
		{Action: models.Action{ID: "a1", DefaultRoleID: strptr("accountant")}, ProcessName: "P"},
		{Action: models.Action{ID: "a2", DefaultRoleID: strptr("clerk")}, ProcessName: "P"},
	}
	repo.On("ListProcedureActions", mock.Anything, "t1", "p1").Return(actions, nil)
	dir.On("UsersWithRole", mock.Anything, "accountant").Return([]string{"u1", "u2"}, nil)
	dir.On("UsersWithRole", mock.Anything, "clerk").Return([]string{}, nil)

	svc := NewAssignmentService(repo, dir, new(MockRegistry))

	proposals, err := svc.ProposeDefaults(ctx, "t1", "p1")
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	assert.Nil(t, proposals[0].ProposedUserID, "multiple matches must not auto-pick")
	assert.Nil(t, proposals[1].ProposedUserID, "zero matches must propose nothing")
}

func TestProposeDefaultsDeterministic(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	dir := new(MockDirectory)

	repo.On("ListProcedureActions", mock.Anything, "t1", "p1").Return(onboardingActions(), nil)
	dir.On("UsersWithRole", mock.Anything, "accountant").Return([]string{"u1"}, nil)

	svc := NewAssignmentService(repo, dir, new(MockRegistry))

	first, err := svc.ProposeDefaults(ctx, "t1", "p1")
	require.NoError(t, err)
	second, err := svc.ProposeDefaults(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAssignProcedureEmptyProcedure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("ListProcedureActions", mock.Anything, "t1", "p1").Return([]*models.ProcedureAction{}, nil)

	svc := NewAssignmentService(repo, new(MockDirectory), new(MockRegistry))

	_, err := svc.AssignProcedure(ctx, "t1", "p1", "e7", nil, map[string]string{})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "empty procedure")
}

func TestAssignProcedureUnknownEntity(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	registry := new(MockRegistry)
	repo.On("ListProcedureActions", mock.Anything, "t1", "p1").Return(onboardingActions(), nil)
	registry.On("EntityExists", mock.Anything, "t1", "e-missing").Return(false, nil)

	svc := NewAssignmentService(repo, new(MockDirectory), registry)

	_, err := svc.AssignProcedure(ctx, "t1", "p1", "e-missing", nil, map[string]string{})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestAssignProcedureIncompleteMap(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	registry := new(MockRegistry)
	repo.On("ListProcedureActions", mock.Anything, "t1", "p1").Return(onboardingActions(), nil)
	registry.On("EntityExists", mock.Anything, "t1", "e7").Return(true, nil)

	svc := NewAssignmentService(repo, new(MockDirectory), registry)

	// a-addr omitted, a-bogus extraneous
	_, err := svc.AssignProcedure(ctx, "t1", "p1", "e7", nil, map[string]string{
		"a-vat":    "u1",
		"a-ledger": "u1",
		"a-bogus":  "u2",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.ElementsMatch(t, []string{"a-addr", "a-bogus"}, ae.IDs)

	repo.AssertNotCalled(t, "CreateInstance", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignProcedureUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	dir := new(MockDirectory)
	registry := new(MockRegistry)
	repo.On("ListProcedureActions", mock.Anything, "t1", "p1").Return(onboardingActions(), nil)
	registry.On("EntityExists", mock.Anything, "t1", "e7").Return(true, nil)
	dir.On("UserExists", mock.Anything, "u1").Return(true, nil)
	dir.On("UserExists", mock.Anything, "u-ghost").Return(false, nil)

	svc := NewAssignmentService(repo, dir, registry)

	_, err := svc.AssignProcedure(ctx, "t1", "p1", "e7", nil, map[string]string{
		"a-vat":    "u1",
		"a-addr":   "u-ghost",
		"a-ledger": "u1",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Contains(t, err.Error(), "a-addr")

	repo.AssertNotCalled(t, "CreateInstance", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignProcedureCommits(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	dir := new(MockDirectory)
	registry := new(MockRegistry)
	repo.On("ListProcedureActions", mock.Anything, "t1", "p1").Return(onboardingActions(), nil)
	registry.On("EntityExists", mock.Anything, "t1", "e7").Return(true, nil)
	dir.On("UserExists", mock.Anything, "u1").Return(true, nil)
	dir.On("UserExists", mock.Anything, "u2").Return(true, nil)
	repo.On("CreateInstance", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewAssignmentService(repo, dir, registry)

	assignments := map[string]string{
		"a-vat":    "u1",
		"a-addr":   "u2",
		"a-ledger": "u1",
	}
	inst, err := svc.AssignProcedure(ctx, "t1", "p1", "e7", nil, assignments)
	require.NoError(t, err)
	assert.Equal(t, "p1", inst.ProcedureID)
	assert.Equal(t, "e7", inst.TargetEntityID)

	repo.AssertCalled(t, "CreateInstance", mock.Anything, inst, assignments)
}

func TestMarkTransitionsDelegate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("MarkInstanceStarted", mock.Anything, "t1", "i1").Return(nil)
	repo.On("MarkInstanceCompleted", mock.Anything, "t1", "i1").Return(apperr.Conflict("instance has open actions", "a1"))
	repo.On("MarkInstanceActionDone", mock.Anything, "t1", "i1", "a1").Return(nil)

	svc := NewAssignmentService(repo, new(MockDirectory), new(MockRegistry))

	require.NoError(t, svc.MarkStarted(ctx, "t1", "i1"))
	require.NoError(t, svc.MarkActionDone(ctx, "t1", "i1", "a1"))

	err := svc.MarkCompleted(ctx, "t1", "i1")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}
