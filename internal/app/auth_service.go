package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bugtalk/internal/cache"
	"bugtalk/internal/model"
	"bugtalk/internal/pkg/jwtutil"
	"bugtalk/internal/repository"
)

const (
	minLoginLen = 5
	maxLoginLen = 20
)

type AuthService struct {
	users  UserStore
	tokens TokenStore
	mailer MailSender
	jwt    *jwtutil.Manager

	verifyTTL     time.Duration
	resetTTL      time.Duration
	defaultAvatar string

	newToken func() string
	now      func() time.Time
}

type AuthOptions struct {
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration
	DefaultAvatar  string
}

type RegisterInput struct {
	Login    string
	Email    string
	Password string
	FullName string
}

type AuthResult struct {
	Tokens jwtutil.Pair
	User   *model.User
}

// OAuthProfile is the identity a provider returns after a successful callback.
type OAuthProfile struct {
	Provider  string
	Email     string
	Name      string
	AvatarURL string
	LoginHint string
}

func NewAuthService(users UserStore, tokens TokenStore, mailer MailSender, jwt *jwtutil.Manager, opts AuthOptions) *AuthService {
	if opts.VerifyTokenTTL <= 0 {
		opts.VerifyTokenTTL = 15 * time.Minute
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		users:         users,
		tokens:        tokens,
		mailer:        mailer,
		jwt:           jwt,
		verifyTTL:     opts.VerifyTokenTTL,
		resetTTL:      opts.ResetTokenTTL,
		defaultAvatar: opts.DefaultAvatar,
		newToken:      func() string { return uuid.NewString() },
		now:           time.Now,
	}
}

// Register creates an unverified account and sends the verification mail.
// A failed mail dispatch is logged, not returned: the account exists and the
// user can request another mail.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	login := strings.TrimSpace(input.Login)
	email := normalizeEmail(input.Email)
	if len(login) < minLoginLen || len(login) > maxLoginLen || email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	if err := checkIdentityFree(ctx, s.users, login, email, 0); err != nil {
		return nil, err
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Login:    login,
		Email:    email,
		Password: hash,
		FullName: strings.TrimSpace(input.FullName),
		Avatar:   s.defaultAvatar,
		Role:     model.RoleUser,
		Verified: false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrIdentityExists
		}
		return nil, err
	}

	if err := s.SendVerificationMail(ctx, email); err != nil {
		log.Printf("send verification mail to %s failed: %v", email, err)
	}
	return user, nil
}

func (s *AuthService) SendVerificationMail(ctx context.Context, email string) error {
	return s.sendOneTime(ctx, cache.PurposeVerify, email, s.verifyTTL, s.mailer.SendVerification)
}

func (s *AuthService) SendResetMail(ctx context.Context, email string) error {
	return s.sendOneTime(ctx, cache.PurposeReset, email, s.resetTTL, s.mailer.SendPasswordReset)
}

// Verify consumes a verification token and marks its user verified. The token is
// spent before the user changes, so a failed update needs a fresh mail.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	user, err := s.consumeTarget(ctx, cache.PurposeVerify, token)
	if err != nil {
		return err
	}

	user.Verified = true
	return s.users.Update(ctx, user)
}

// ResetPassword consumes a reset token and replaces the user's password.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return ErrInvalidInput
	}
	user, err := s.consumeTarget(ctx, cache.PurposeReset, token)
	if err != nil {
		return err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hash
	return s.users.Update(ctx, user)
}

// ValidateUser checks local credentials. Unknown, unverified and mismatching
// accounts are all rejected as unauthorized.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, user *model.User) (*AuthResult, error) {
	pair, err := s.GenerateTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: pair, User: user}, nil
}

// Refresh issues a new pair for a user already resolved from a refresh token.
func (s *AuthService) Refresh(ctx context.Context, user *model.User) (*AuthResult, error) {
	return s.Login(ctx, user)
}

func (s *AuthService) GenerateTokens(ctx context.Context, user *model.User) (jwtutil.Pair, error) {
	return s.jwt.IssuePair(ctx, jwtutil.Payload{UserID: user.ID, Email: user.Email})
}

// Logout blacklists the access token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwt.Decode(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.tokens.Blacklist(ctx, accessToken, ttl)
}

func (s *AuthService) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	return s.tokens.IsBlacklisted(ctx, accessToken)
}

// OAuthLogin signs in the account owning profile.Email, creating a verified one
// on first use.
func (s *AuthService) OAuthLogin(ctx context.Context, profile OAuthProfile) (*AuthResult, error) {
	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, newError(ErrUnauthorized, profile.Provider+" account has no usable email")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.createOAuthUser(ctx, email, profile)
		if err != nil {
			return nil, err
		}
	}
	return s.Login(ctx, user)
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) createOAuthUser(ctx context.Context, email string, profile OAuthProfile) (*model.User, error) {
	hint := profile.LoginHint
	if hint == "" {
		hint = strings.SplitN(email, "@", 2)[0]
	}
	login, err := s.synthesizeLogin(ctx, hint)
	if err != nil {
		return nil, err
	}

	// OAuth accounts get an unusable random password; they can set one via reset.
	hash, err := hashPassword(s.newToken())
	if err != nil {
		return nil, err
	}

	avatar := profile.AvatarURL
	if avatar == "" {
		avatar = s.defaultAvatar
	}
	user := &model.User{
		Login:    login,
		Email:    email,
		Password: hash,
		FullName: strings.TrimSpace(profile.Name),
		Avatar:   avatar,
		Role:     model.RoleUser,
		Verified: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

var loginCleaner = regexp.MustCompile(`[^a-z0-9._-]+`)

func (s *AuthService) synthesizeLogin(ctx context.Context, hint string) (string, error) {
	base := loginCleaner.ReplaceAllString(strings.ToLower(hint), "")
	if len(base) > maxLoginLen-6 {
		base = base[:maxLoginLen-6]
	}
	for len(base) < minLoginLen {
		base += "_"
	}

	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		existing, err := s.users.GetByLogin(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		suffix := strings.ReplaceAll(s.newToken(), "-", "")
		candidate = base + "-" + suffix[:5]
	}
	return "", fmt.Errorf("could not find a free login for %q", hint)
}

func (s *AuthService) sendOneTime(
	ctx context.Context,
	purpose cache.TokenPurpose,
	email string,
	ttl time.Duration,
	send func(ctx context.Context, email, token string) error,
) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUnknownEmail
	}

	token := s.newToken()
	if err := s.tokens.SaveOneTime(ctx, purpose, token, user.Email, ttl); err != nil {
		return err
	}
	return send(ctx, user.Email, token)
}

// consumeTarget spends token and resolves the user it was issued for.
func (s *AuthService) consumeTarget(ctx context.Context, purpose cache.TokenPurpose, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	email, err := s.tokens.ConsumeOneTime(ctx, purpose, token)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrTokenUserMissing
	}
	return user, nil
}

// checkIdentityFree rejects login/email values taken by a user other than selfID.
func checkIdentityFree(ctx context.Context, users UserStore, login, email string, selfID uint) error {
	if login != "" {
		existing, err := users.GetByLogin(ctx, login)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return ErrLoginExists
		}
	}
	if email != "" {
		existing, err := users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != selfID {
			return ErrEmailExists
		}
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
