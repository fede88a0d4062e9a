package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"bugtalk/internal/config"
)

const githubAPIURL = "https://api.github.com"

type GitHub struct {
	conf   *oauth2.Config
	apiURL string
}

// NewGitHub returns nil when no client id is configured.
func NewGitHub(cfg config.OAuthProviderConfig) *GitHub {
	if cfg.ClientID == "" {
		return nil
	}
	return &GitHub{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     endpoints.GitHub,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiURL: githubAPIURL,
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state)
}

// Exchange falls back to /user/emails when the public profile hides the address.
func (g *GitHub) Exchange(ctx context.Context, code string) (*Profile, error) {
	client, err := exchange(ctx, g.conf, code)
	if err != nil {
		return nil, err
	}

	var user struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, g.apiURL+"/user", &user); err != nil {
		return nil, err
	}

	profile := &Profile{
		Provider:  g.Name(),
		Email:     user.Email,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		Login:     user.Login,
	}
	if profile.Email == "" {
		if profile.Email, err = g.primaryEmail(ctx, client); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func (g *GitHub) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, g.apiURL+"/user/emails", &emails); err != nil {
		return "", err
	}

	fallback := ""
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email, nil
		}
		if fallback == "" {
			fallback = e.Email
		}
	}
	return fallback, nil
}
