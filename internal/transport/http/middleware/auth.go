package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bugtalk/internal/model"
	"bugtalk/internal/pkg/jwtutil"
	"bugtalk/internal/transport/http/response"
)

const (
	ContextUserKey        = "user"
	ContextAccessTokenKey = "access_token"

	RefreshCookieName = "refresh_token"
)

// UserResolver loads token subjects and answers revocation lookups.
type UserResolver interface {
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	IsRevoked(ctx context.Context, accessToken string) (bool, error)
}

var (
	errMissingToken   = errors.New("missing authorization header")
	errMissingRefresh = errors.New("missing refresh token")
	errBadScheme      = errors.New("invalid authorization scheme")
	errRevoked        = errors.New("token revoked")
	errNoUser         = errors.New("user not found")
	errUnverified     = errors.New("email is not verified")
)

// AccessGuard requires a valid, unrevoked bearer access token of a verified user.
func AccessGuard(tokens *jwtutil.Manager, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, token, err := authenticate(c, tokens, users)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextAccessTokenKey, token)
		c.Next()
	}
}

// OptionalAccess attaches the user when a usable access token is present and
// lets the request through anonymously otherwise.
func OptionalAccess(tokens *jwtutil.Manager, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			if user, token, err := authenticate(c, tokens, users); err == nil {
				c.Set(ContextUserKey, user)
				c.Set(ContextAccessTokenKey, token)
			}
		}
		c.Next()
	}
}

// RefreshGuard authenticates with the refresh token cookie.
func RefreshGuard(tokens *jwtutil.Manager, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(RefreshCookieName)
		if err != nil || raw == "" {
			abortUnauthorized(c, errMissingRefresh)
			return
		}

		claims, err := tokens.ParseRefresh(raw)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		user, err := resolve(c, users, claims.UserID)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireRoles must run after AccessGuard. An empty role list allows everyone.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(roles) == 0 {
			c.Next()
			return
		}

		user := CurrentUser(c)
		if user == nil {
			abortUnauthorized(c, errNoUser)
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, response.CodeForbidden, "insufficient role")
		c.Abort()
	}
}

// CurrentUser returns the authenticated user, or nil on anonymous requests.
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

func AccessToken(c *gin.Context) string {
	return c.GetString(ContextAccessTokenKey)
}

func authenticate(c *gin.Context, tokens *jwtutil.Manager, users UserResolver) (*model.User, string, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return nil, "", errMissingToken
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return nil, "", errBadScheme
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	claims, err := tokens.ParseAccess(token)
	if err != nil {
		return nil, "", err
	}

	revoked, err := users.IsRevoked(c.Request.Context(), token)
	if err != nil {
		log.Printf("blacklist lookup failed: %v", err)
		return nil, "", err
	}
	if revoked {
		return nil, "", errRevoked
	}

	user, err := resolve(c, users, claims.UserID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func resolve(c *gin.Context, users UserResolver, id uint) (*model.User, error) {
	user, err := users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errNoUser
	}
	if !user.Verified {
		return nil, errUnverified
	}
	return user, nil
}

func abortUnauthorized(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, jwtutil.ErrInvalidToken):
		msg = "invalid or expired token"
	case errors.Is(err, errMissingToken), errors.Is(err, errMissingRefresh), errors.Is(err, errBadScheme),
		errors.Is(err, errRevoked), errors.Is(err, errNoUser), errors.Is(err, errUnverified):
	default:
		msg = "unauthorized"
	}
	response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, msg)
	c.Abort()
}
