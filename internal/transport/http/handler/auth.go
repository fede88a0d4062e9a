package handler

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bugtalk/internal/app"
	"bugtalk/internal/model"
	"bugtalk/internal/oauth"
	"bugtalk/internal/transport/http/middleware"
	"bugtalk/internal/transport/http/response"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService *app.AuthService
	providers   *oauth.Registry
	cookies     CookieOptions
}

type CookieOptions struct {
	Secure              bool
	RefreshTTL          time.Duration
	FrontendCallbackURL string
}

type RegisterRequest struct {
	Login    string `json:"login" binding:"required,min=5,max=20"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	FullName string `json:"fullname" binding:"max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type tokenResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func NewAuthHandler(authService *app.AuthService, providers *oauth.Registry, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, providers: providers, cookies: cookies}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		writeError(c, err, "register")
		return
	}
	response.Created(c, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.authService.ValidateUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err, "login")
		return
	}
	result, err := h.authService.Login(c.Request.Context(), user)
	if err != nil {
		writeError(c, err, "login")
		return
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken)
	response.OK(c, tokenResponse{User: result.User, Token: result.Tokens.AccessToken})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.AccessToken(c)); err != nil {
		writeError(c, err, "logout")
		return
	}
	h.clearRefreshCookie(c)
	response.NoContent(c)
}

func (h *AuthHandler) SendVerification(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.authService.SendVerificationMail(c.Request.Context(), req.Email); err != nil {
		writeError(c, err, "send verification mail")
		return
	}
	response.NoContent(c)
}

func (h *AuthHandler) Verify(c *gin.Context) {
	if err := h.authService.Verify(c.Request.Context(), c.Param("token")); err != nil {
		writeError(c, err, "verify email")
		return
	}
	response.NoContent(c)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.authService.SendResetMail(c.Request.Context(), req.Email); err != nil {
		writeError(c, err, "send reset mail")
		return
	}
	response.OK(c, nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		writeError(c, err, "reset password")
		return
	}
	response.NoContent(c)
}

func (h *AuthHandler) RefreshTokens(c *gin.Context) {
	result, err := h.authService.Refresh(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		writeError(c, err, "refresh tokens")
		return
	}
	h.setRefreshCookie(c, result.Tokens.RefreshToken)
	response.Created(c, tokenResponse{User: result.User, Token: result.Tokens.AccessToken})
}

func (h *AuthHandler) Self(c *gin.Context) {
	response.OK(c, middleware.CurrentUser(c))
}

// OAuthRedirect starts the provider flow. The state travels in a short-lived
// cookie and must come back unchanged on the callback.
func (h *AuthHandler) OAuthRedirect(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.providers.Get(provider)
		if err != nil {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
			return
		}

		state := uuid.NewString()
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/", "", h.cookies.Secure, true)
		c.Redirect(http.StatusTemporaryRedirect, p.AuthCodeURL(state))
	}
}

func (h *AuthHandler) OAuthCallback(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.providers.Get(provider)
		if err != nil {
			response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
			return
		}

		state, _ := c.Cookie(oauthStateCookie)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cookies.Secure, true)
		if state == "" || state != c.Query("state") {
			h.oauthFailed(c, provider, errors.New("state mismatch"))
			return
		}

		profile, err := p.Exchange(c.Request.Context(), c.Query("code"))
		if err != nil {
			h.oauthFailed(c, provider, err)
			return
		}

		result, err := h.authService.OAuthLogin(c.Request.Context(), app.OAuthProfile{
			Provider:  profile.Provider,
			Email:     profile.Email,
			Name:      profile.Name,
			AvatarURL: profile.AvatarURL,
			LoginHint: profile.Login,
		})
		if err != nil {
			h.oauthFailed(c, provider, err)
			return
		}

		h.setRefreshCookie(c, result.Tokens.RefreshToken)
		c.Redirect(http.StatusFound, h.frontendCallback(url.Values{"token": {result.Tokens.AccessToken}}))
	}
}

func (h *AuthHandler) oauthFailed(c *gin.Context, provider string, err error) {
	log.Printf("%s oauth callback failed: %v", provider, err)
	c.Redirect(http.StatusFound, h.frontendCallback(url.Values{"error": {"oauth_failed"}}))
}

func (h *AuthHandler) frontendCallback(params url.Values) string {
	u, err := url.Parse(h.cookies.FrontendCallbackURL)
	if err != nil {
		return h.cookies.FrontendCallbackURL
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.RefreshCookieName, token, int(h.cookies.RefreshTTL.Seconds()), "/", "", h.cookies.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.RefreshCookieName, "", -1, "/", "", h.cookies.Secure, true)
}
