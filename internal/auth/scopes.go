package auth

const (
	ScopeOpenID   = "openid"
	ScopeProfile  = "profile"
	ScopeEmail    = "email"
	ScopePPARead  = "ppa:read"
	ScopePPAWrite = "ppa:write"
)

// AllScopes defines the full set of scopes used by the Swagger UI / Frontend
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopePPARead,
	ScopePPAWrite,
}
