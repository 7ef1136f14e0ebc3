// Package session owns the signed-in user: the bearer credential and the
// cached profile. The credential lives in the durable local store so a new
// view starts signed in, and is cleared the moment the wallet service
// rejects it.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	apperrors "github.com/fakecombank/teller/internal/shared/errors"

	"github.com/fakecombank/teller/internal/gateway/bank"
	"github.com/fakecombank/teller/internal/localstore"
	"github.com/fakecombank/teller/pkg/logger"
)

// GuestName is shown when the profile cannot be fetched after sign-in.
const GuestName = "Khách hàng"

// RemoteAuth is the slice of the wallet service the session layer needs.
type RemoteAuth interface {
	SignIn(ctx context.Context, email, password string) (*bank.AuthResponse, error)
	SignUp(ctx context.Context, fullName, email, password, mobile string) (*bank.AuthResponse, error)
	GetProfile(ctx context.Context) (*bank.Profile, error)
}

// Manager holds the current session for this view.
type Manager struct {
	client RemoteAuth
	store  localstore.Store
	logger *logger.Logger

	mu      sync.RWMutex
	token   string
	profile *bank.Profile
}

// NewManager creates a signed-out session manager
func NewManager(client RemoteAuth, store localstore.Store, log *logger.Logger) *Manager {
	return &Manager{
		client: client,
		store:  store,
		logger: log.WithField("component", "session"),
	}
}

// Restore loads a previously persisted session so a new view starts where
// the last one left off. Missing or malformed stored values leave the
// session signed out without error.
func (m *Manager) Restore(ctx context.Context) {
	token, ok, err := m.store.Get(ctx, localstore.KeyToken)
	if err != nil || !ok || token == "" {
		return
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	raw, ok, err := m.store.Get(ctx, localstore.KeyProfile)
	if err != nil || !ok {
		return
	}
	var profile bank.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		m.logger.Warn("discarding malformed stored profile", "error", err)
		return
	}

	m.mu.Lock()
	m.profile = &profile
	m.mu.Unlock()
}

// SignIn authenticates against the wallet service and persists the
// credential. The profile fetch afterwards is best effort: when it fails
// the session still opens under a guest display name.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*bank.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.Validation("Vui lòng nhập email và mật khẩu")
	}

	resp, err := m.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, resp.JWT)
}

// SignUp registers a new account and opens a session with the returned
// credential.
func (m *Manager) SignUp(ctx context.Context, fullName, email, password, mobile string) (*bank.Profile, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" || password == "" {
		return nil, apperrors.Validation("Vui lòng điền đầy đủ thông tin đăng ký")
	}

	resp, err := m.client.SignUp(ctx, fullName, email, password, mobile)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, resp.JWT)
}

func (m *Manager) open(ctx context.Context, token string) (*bank.Profile, error) {
	if token == "" {
		return nil, apperrors.ServerRejected("Máy chủ không trả về phiên đăng nhập")
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	if err := m.store.Set(ctx, localstore.KeyToken, token); err != nil {
		m.logger.Warn("failed to persist credential", "error", err)
	}

	profile, err := m.client.GetProfile(ctx)
	if err != nil {
		m.logger.Warn("profile fetch failed, continuing as guest", "error", err)
		profile = &bank.Profile{FullName: GuestName}
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()

	if encoded, err := json.Marshal(profile); err == nil {
		if err := m.store.Set(ctx, localstore.KeyProfile, string(encoded)); err != nil {
			m.logger.Warn("failed to persist profile", "error", err)
		}
	}
	return profile, nil
}

// Logout clears the session, in memory and in the durable store.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.token = ""
	m.profile = nil
	m.mu.Unlock()

	if err := m.store.Delete(ctx, localstore.KeyToken); err != nil {
		m.logger.Warn("failed to clear stored credential", "error", err)
	}
	if err := m.store.Delete(ctx, localstore.KeyProfile); err != nil {
		m.logger.Warn("failed to clear stored profile", "error", err)
	}
}

// HandleUnauthorized drops the in-memory credential after the wallet
// service rejects it. Wired to the client's 401 hook; the stored copy is
// cleared too so the next view does not retry a dead token.
func (m *Manager) HandleUnauthorized() {
	m.mu.Lock()
	m.token = ""
	m.profile = nil
	m.mu.Unlock()

	if err := m.store.Delete(context.Background(), localstore.KeyToken); err != nil {
		m.logger.Warn("failed to clear rejected credential", "error", err)
	}
}

// Token implements bank.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Authenticated reports whether a credential is present.
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// Profile returns the cached profile, nil when signed out or never fetched.
func (m *Manager) Profile() *bank.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}
