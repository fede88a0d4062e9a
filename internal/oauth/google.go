package oauth

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"bugtalk/internal/config"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type Google struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewGoogle returns nil when no client id is configured.
func NewGoogle(cfg config.OAuthProviderConfig) *Google {
	if cfg.ClientID == "" {
		return nil
	}
	return &Google{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *Google) Name() string { return "google" }

func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *Google) Exchange(ctx context.Context, code string) (*Profile, error) {
	client, err := exchange(ctx, g.conf, code)
	if err != nil {
		return nil, err
	}

	var info struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, client, g.userInfoURL, &info); err != nil {
		return nil, err
	}

	profile := &Profile{
		Provider:  g.Name(),
		Name:      info.Name,
		AvatarURL: info.Picture,
		Login:     info.GivenName,
	}
	if info.EmailVerified {
		profile.Email = info.Email
	}
	return profile, nil
}
