package auth

import (
	"errors"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpick-api/internal/constants"
)

// ErrMissingIdentity means the request carried no credential at all.
var ErrMissingIdentity = errors.New("missing identity")

// IdentityResolver turns a request into the caller's user id.
type IdentityResolver interface {
	Resolve(c *gin.Context) (string, error)
	Mode() string
}

// IdentityBinder is implemented by resolvers that keep server-side state
// which must be set after signup or signin.
type IdentityBinder interface {
	Bind(c *gin.Context, userID string) error
}

// TokenResolver verifies a bearer token from the Authorization header.
type TokenResolver struct {
	issuer *TokenIssuer
}

func NewTokenResolver(issuer *TokenIssuer) *TokenResolver {
	return &TokenResolver{issuer: issuer}
}

func (r *TokenResolver) Mode() string { return "token" }

func (r *TokenResolver) Resolve(c *gin.Context) (string, error) {
	header := strings.TrimSpace(c.GetHeader(constants.HeaderAuthorization))
	if header == "" {
		return "", ErrMissingIdentity
	}

	// A bare "Bearer" scheme carries no credential and counts as missing.
	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, strings.TrimSpace(constants.BearerPrefix)) {
		return "", ErrInvalidToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingIdentity
	}

	return r.issuer.Parse(token)
}

// HeaderResolver trusts the user-id header as-is. It performs no verification
// and exists only for deployments behind a gateway that sets the header.
type HeaderResolver struct{}

func NewHeaderResolver() *HeaderResolver {
	return &HeaderResolver{}
}

func (r *HeaderResolver) Mode() string { return "header" }

func (r *HeaderResolver) Resolve(c *gin.Context) (string, error) {
	userID := strings.TrimSpace(c.GetHeader(constants.HeaderUserID))
	if userID == "" {
		return "", ErrMissingIdentity
	}
	return userID, nil
}

// SessionResolver reads the user id from the gin-contrib/sessions store.
// The sessions middleware must run before it.
type SessionResolver struct{}

func NewSessionResolver() *SessionResolver {
	return &SessionResolver{}
}

func (r *SessionResolver) Mode() string { return "session" }

func (r *SessionResolver) Resolve(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	value := session.Get(constants.ContextKeyUserID)
	if value == nil {
		return "", ErrMissingIdentity
	}

	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

func (r *SessionResolver) Bind(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, userID)
	return session.Save()
}

// Clear drops the session identity, used when the account is deleted.
func (r *SessionResolver) Clear(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}
