package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugtalk/internal/model"
	"bugtalk/internal/pkg/jwtutil"
)

type stubResolver struct {
	users   map[uint]*model.User
	revoked map[string]bool
}

func (r *stubResolver) GetUserByID(_ context.Context, id uint) (*model.User, error) {
	return r.users[id], nil
}

func (r *stubResolver) IsRevoked(_ context.Context, token string) (bool, error) {
	return r.revoked[token], nil
}

func setup(t *testing.T) (*jwtutil.Manager, *stubResolver) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := jwtutil.NewManager(
		jwtutil.KeyConfig{Secret: "access", Expiration: time.Minute},
		jwtutil.KeyConfig{Secret: "refresh", Expiration: time.Hour},
	)
	resolver := &stubResolver{
		users: map[uint]*model.User{
			1: {ID: 1, Email: "user@example.com", Role: model.RoleUser, Verified: true},
			2: {ID: 2, Email: "new@example.com", Role: model.RoleUser, Verified: false},
			3: {ID: 3, Email: "admin@example.com", Role: model.RoleAdmin, Verified: true},
		},
		revoked: map[string]bool{},
	}
	return tokens, resolver
}

func issue(t *testing.T, tokens *jwtutil.Manager, id uint) string {
	t.Helper()
	token, err := tokens.IssueAccess(jwtutil.Payload{UserID: id, Email: "x@example.com"})
	require.NoError(t, err)
	return token
}

func serve(engine *gin.Engine, header string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func whoAmI(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, user.Email)
}

func TestAccessGuard(t *testing.T) {
	tokens, resolver := setup(t)
	engine := gin.New()
	engine.GET("/", AccessGuard(tokens, resolver), whoAmI)

	valid := issue(t, tokens, 1)
	rec := serve(engine, "Bearer "+valid, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", rec.Body.String())

	cases := map[string]string{
		"missing header":  "",
		"wrong scheme":    "Basic " + valid,
		"garbage token":   "Bearer not-a-token",
		"unverified user": "Bearer " + issue(t, tokens, 2),
		"unknown user":    "Bearer " + issue(t, tokens, 99),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(engine, header, nil).Code)
		})
	}

	refresh, err := tokens.IssueRefresh(jwtutil.Payload{UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, "Bearer "+refresh, nil).Code, "refresh tokens are not access tokens")

	resolver.revoked[valid] = true
	rec = serve(engine, "Bearer "+valid, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token revoked")
}

func TestOptionalAccess(t *testing.T) {
	tokens, resolver := setup(t)
	engine := gin.New()
	engine.GET("/", OptionalAccess(tokens, resolver), whoAmI)

	assert.Equal(t, "anonymous", serve(engine, "", nil).Body.String())
	assert.Equal(t, "anonymous", serve(engine, "Bearer broken", nil).Body.String())
	assert.Equal(t, "user@example.com", serve(engine, "Bearer "+issue(t, tokens, 1), nil).Body.String())
}

func TestRefreshGuard(t *testing.T) {
	tokens, resolver := setup(t)
	engine := gin.New()
	engine.GET("/", RefreshGuard(tokens, resolver), whoAmI)

	refresh, err := tokens.IssueRefresh(jwtutil.Payload{UserID: 1})
	require.NoError(t, err)

	rec := serve(engine, "", &http.Cookie{Name: RefreshCookieName, Value: refresh})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(engine, "", nil).Code)
	access := issue(t, tokens, 1)
	assert.Equal(t, http.StatusUnauthorized, serve(engine, "", &http.Cookie{Name: RefreshCookieName, Value: access}).Code)
}

func TestRequireRoles(t *testing.T) {
	tokens, resolver := setup(t)
	engine := gin.New()
	engine.GET("/", AccessGuard(tokens, resolver), RequireRoles(model.RoleAdmin), whoAmI)

	assert.Equal(t, http.StatusForbidden, serve(engine, "Bearer "+issue(t, tokens, 1), nil).Code)
	assert.Equal(t, http.StatusOK, serve(engine, "Bearer "+issue(t, tokens, 3), nil).Code)

	open := gin.New()
	open.GET("/", AccessGuard(tokens, resolver), RequireRoles(), whoAmI)
	assert.Equal(t, http.StatusOK, serve(open, "Bearer "+issue(t, tokens, 1), nil).Code)
}
