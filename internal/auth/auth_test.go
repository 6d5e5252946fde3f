package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ppa/backend/internal/apperr"
	"ppa/backend/internal/repository"
	"ppa/backend/pkg/models"
)

// MockKeySet satisfies oidc.KeySet to bypass signature verification.
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

// MockTenantRepo satisfies repository.Repository for the tenant lookup path.
type MockTenantRepo struct {
	mock.Mock
	repository.Repository
}

func (m *MockTenantRepo) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepo) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	tenant.ID = "t-prov"
	return args.Error(0)
}

const testIssuer = "https://issuer.test"

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`))
	payloadJSON, err := json.Marshal(claims)
	require.NoError(t, err)
	payload := base64.RawURLEncoding.EncodeToString(payloadJSON)
	return header + "." + payload + ".sig"
}

func newTestAuth(repo repository.Repository) *Auth {
	verifier := oidc.NewVerifier(testIssuer, &MockKeySet{}, &oidc.Config{SkipClientIDCheck: true})
	return &Auth{apiVerifier: verifier, repo: repo}
}

func TestRequireAuthBearerTokenExtractsTenant(t *testing.T) {
	repo := new(MockTenantRepo)
	repo.On("GetTenantByDomain", mock.Anything, "acme.example").
		Return(&models.Tenant{ID: "t1", Domain: "acme.example"}, nil)

	a := newTestAuth(repo)

	var gotTenant string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = r.Context().Value("tenant_id").(string)
	})

	token := makeToken(t, map[string]any{
		"iss":   testIssuer,
		"aud":   "api",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "anna@acme.example",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/instances", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	a.RequireAuth(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", gotTenant)
	repo.AssertExpectations(t)
}

func TestRequireAuthProvisionsUnknownTenant(t *testing.T) {
	repo := new(MockTenantRepo)
	repo.On("GetTenantByDomain", mock.Anything, "new.example").
		Return(nil, apperr.NotFound("tenant", "new.example"))
	repo.On("CreateTenant", mock.Anything, mock.Anything).Return(nil)

	a := newTestAuth(repo)

	var gotTenant string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = r.Context().Value("tenant_id").(string)
	})

	token := makeToken(t, map[string]any{
		"iss":   testIssuer,
		"aud":   "api",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"email": "mario@new.example",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	a.RequireAuth(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t-prov", gotTenant)
	repo.AssertExpectations(t)
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	a := newTestAuth(new(MockTenantRepo))

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	a.RequireAuth(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireAuthBypassUsesDevTenant(t *testing.T) {
	repo := new(MockTenantRepo)
	repo.On("GetTenantByDomain", mock.Anything, "localhost").
		Return(&models.Tenant{ID: "t-dev", Domain: "localhost"}, nil)

	a := &Auth{repo: repo, authBypass: true}

	var gotTenant string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = r.Context().Value("tenant_id").(string)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	rec := httptest.NewRecorder()

	a.RequireAuth(next).ServeHTTP(rec, req)

	assert.Equal(t, "t-dev", gotTenant)
}
