package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"

	"ppa/backend/internal/apperr"
	"ppa/backend/internal/config"
	"ppa/backend/internal/repository"
	"ppa/backend/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Auth performs OpenID Connect authentication against the organization's
// identity provider and resolves the caller's tenant into the request
// context. The PPA core only consumes the resulting tenant id; the mechanics
// live entirely at this boundary.
type Auth struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	apiVerifier  *oidc.IDTokenVerifier
	repo         repository.Repository
	logger       Logger
	authBypass   bool
}

// New creates a new Auth object using values from the application
// configuration.
func New(ctx context.Context, cfg *config.Config, repo repository.Repository, logger Logger) (*Auth, error) {
	isDev := strings.EqualFold(cfg.Environment, "dev")
	shouldBypass := isDev && cfg.DevModeBypass

	a := &Auth{repo: repo, logger: logger, authBypass: shouldBypass}
	if shouldBypass {
		return a, nil
	}

	if cfg.Auth.OktaDomain == "" || cfg.Auth.ClientID == "" ||
		cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.OktaDomain)
	if err != nil {
		return nil, err
	}

	a.oauth2Config = &oauth2.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       []string{ScopeOpenID, ScopeEmail},
	}
	a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})
	// Access tokens carry a different audience than the web client id, so
	// the bearer verifier skips the client id check.
	a.apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})

	return a, nil
}

// LoginHandler initiates the OAuth2 authorization code flow. A random state
// value is stored in a cookie to mitigate CSRF attacks.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		HttpOnly: true,
		Path:     "/",
	})
	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler handles the redirect back from the identity provider: it
// verifies the state parameter, exchanges the code for tokens, validates the
// ID token and sets the session cookie.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie("oauthstate")
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}
	if _, err := a.verifier.Verify(r.Context(), rawIDToken); err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "id_token",
		Value:    rawIDToken,
		HttpOnly: true,
		Path:     "/",
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireAuth is middleware that validates the caller's token, resolves the
// tenant from the email domain and injects the tenant id into the request
// context under the "tenant_id" key.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var email string

		if a.authBypass {
			email = "dev@localhost"
		} else {
			var token *oidc.IDToken
			var err error

			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				token, err = a.apiVerifier.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			} else {
				cookie, cerr := r.Cookie("id_token")
				if cerr != nil {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
				token, err = a.verifier.Verify(r.Context(), cookie.Value)
			}
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			var claims struct {
				Email string `json:"email"`
			}
			if err := token.Claims(&claims); err != nil {
				http.Error(w, "failed to parse token claims", http.StatusUnauthorized)
				return
			}
			email = claims.Email
		}

		parts := strings.Split(email, "@")
		if len(parts) != 2 {
			http.Error(w, "invalid email format in token", http.StatusUnauthorized)
			return
		}
		domain := parts[1]

		tenant, err := a.repo.GetTenantByDomain(r.Context(), domain)
		if apperr.IsNotFound(err) {
			// Auto-provision unknown tenants on first login.
			tenant = &models.Tenant{Name: domain, Domain: domain}
			if createErr := a.repo.CreateTenant(r.Context(), tenant); createErr != nil {
				if a.logger != nil {
					a.logger.Error("failed to provision tenant", "domain", domain, "error", createErr)
				}
				http.Error(w, "failed to provision tenant", http.StatusInternalServerError)
				return
			}
		} else if err != nil {
			http.Error(w, "tenant lookup failed", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), "tenant_id", tenant.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LogoutHandler clears the session cookie and redirects to the home page.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   "id_token",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
