package apptest

import (
	"context"
	"fmt"
	"mime/multipart"
	"sync"
	"time"

	"bugtalk/internal/cache"
)

// Tokens mirrors cache.TokenStore with an adjustable clock.
type Tokens struct {
	mu      sync.Mutex
	entries map[string]tokenEntry
	Now     time.Time
}

type tokenEntry struct {
	value   string
	expires time.Time
}

func NewTokens() *Tokens {
	return &Tokens{entries: map[string]tokenEntry{}, Now: time.Now()}
}

// Advance moves the clock forward, expiring entries whose TTL has passed.
func (t *Tokens) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Now = t.Now.Add(d)
}

func (t *Tokens) SaveOneTime(_ context.Context, purpose cache.TokenPurpose, token, email string, ttl time.Duration) error {
	t.set(string(purpose)+":"+token, email, ttl)
	return nil
}

func (t *Tokens) ConsumeOneTime(_ context.Context, purpose cache.TokenPurpose, token string) (string, error) {
	key := string(purpose) + ":" + token
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	delete(t.entries, key)
	if !ok || !t.Now.Before(entry.expires) {
		return "", nil
	}
	return entry.value, nil
}

func (t *Tokens) Blacklist(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	t.set("blacklist:"+token, "1", ttl)
	return nil
}

func (t *Tokens) IsBlacklisted(_ context.Context, token string) (bool, error) {
	return t.get("blacklist:"+token) != "", nil
}

func (t *Tokens) set(key, value string, ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = tokenEntry{value: value, expires: t.Now.Add(ttl)}
}

func (t *Tokens) get(key string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[key]
	if !ok || !t.Now.Before(entry.expires) {
		return ""
	}
	return entry.value
}

// Mail is one captured message.
type Mail struct {
	Kind  string
	To    string
	Token string
}

// Mailer records every mail instead of sending it. Err, when set, is returned
// from every send.
type Mailer struct {
	mu   sync.Mutex
	Sent []Mail
	Err  error
}

func (m *Mailer) SendVerification(_ context.Context, email, token string) error {
	return m.record("verify", email, token)
}

func (m *Mailer) SendPasswordReset(_ context.Context, email, token string) error {
	return m.record("reset", email, token)
}

// Last returns the most recent mail of kind, or a zero Mail.
func (m *Mailer) Last(kind string) Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].Kind == kind {
			return m.Sent[i]
		}
	}
	return Mail{}
}

func (m *Mailer) record(kind, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Mail{Kind: kind, To: email, Token: token})
	return nil
}

// Avatars records avatar files as if they were written to disk.
type Avatars struct {
	mu      sync.Mutex
	n       int
	Stored  map[string]bool
	Removed []string
	SaveErr error
}

func NewAvatars() *Avatars {
	return &Avatars{Stored: map[string]bool{}}
}

func (a *Avatars) Save(_ *multipart.FileHeader) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.SaveErr != nil {
		return "", a.SaveErr
	}
	a.n++
	url := fmt.Sprintf("/uploads/avatars/%d.png", a.n)
	a.Stored[url] = true
	return url, nil
}

func (a *Avatars) Remove(url string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.Stored, url)
	a.Removed = append(a.Removed, url)
	return nil
}
