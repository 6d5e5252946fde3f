package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppa/backend/internal/apperr"
)

func TestCatalogRejectsEmptyNames(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(new(MockRepository))

	_, err := svc.CreateProcedure(ctx, "t1", nil, "   ")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.AddProcess(ctx, "t1", "p1", "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = svc.AddAction(ctx, "t1", "pr1", "", "instructions", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	err = svc.UpdateProcess(ctx, "t1", "pr1", " ")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestCreateProcedureTrimsName(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(new(MockRepository))

	proc, err := svc.CreateProcedure(ctx, "t1", nil, "  Client Onboarding ")
	require.NoError(t, err)
	assert.Equal(t, "Client Onboarding", proc.CustomName)
	assert.Equal(t, "t1", proc.TenantID)
}
