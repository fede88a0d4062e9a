package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"bugtalk/internal/config"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Profile is the part of a provider account used to sign a user in.
type Profile struct {
	Provider  string
	Email     string
	Name      string
	AvatarURL string
	Login     string
}

type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Registry holds the providers that have client credentials configured.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(cfg config.OAuthConfig) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	if g := NewGoogle(cfg.Google); g != nil {
		r.Register(g)
	}
	if g := NewGitHub(cfg.GitHub); g != nil {
		r.Register(g)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s failed: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response failed: %w", url, err)
	}
	return nil
}

func exchange(ctx context.Context, conf *oauth2.Config, code string) (*http.Client, error) {
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange oauth code failed: %w", err)
	}
	return conf.Client(ctx, token), nil
}
