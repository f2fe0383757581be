package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/itbasis/go-clock"

	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/pkg/common"
	"livescore-client/storage"
)

// Storage keys owned by the auth service.
const (
	TokenKey        = "auth-token"
	RefreshTokenKey = "refresh-token"
	UserKey         = "current-user"
)

// Session is the authenticated context. It is created on a successful
// login, register, admin login or refresh, and discarded on logout or when
// the token is found expired.
type Session struct {
	User         models.User
	Token        string
	RefreshToken string
	CreatedAt    time.Time
}

// IsAdmin reports whether the session user has the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.User.Role == models.RoleAdmin
}

// AuthService 认证服务
type AuthService struct {
	api     *apiClient
	storage *storage.Service
	clock   clock.Clock

	mu      sync.RWMutex
	session *Session
}

// NewAuthService creates the service and restores a stored, unexpired session.
func NewAuthService(baseURL string, httpClient *http.Client, store *storage.Service, clk clock.Clock) *AuthService {
	if clk == nil {
		clk = clock.New()
	}
	s := &AuthService{storage: store, clock: clk}
	s.api = newAPIClient(baseURL, httpClient, s.GetToken)
	s.loadSessionFromStorage()
	return s
}

// ============ authentication ============

func (s *AuthService) Login(ctx context.Context, credentials models.LoginRequest) (*models.AuthResponse, error) {
	return s.authenticate(ctx, "/auth/login", credentials)
}

func (s *AuthService) Register(ctx context.Context, userData models.RegisterRequest) (*models.AuthResponse, error) {
	return s.authenticate(ctx, "/auth/register", userData)
}

func (s *AuthService) AdminLogin(ctx context.Context, credentials models.LoginRequest) (*models.AuthResponse, error) {
	return s.authenticate(ctx, "/auth/admin-login", credentials)
}

// Logout notifies the API best-effort and always drops the local session.
func (s *AuthService) Logout(ctx context.Context) {
	if _, err := s.api.post(ctx, "/auth/logout", struct{}{}, nil); err != nil {
		logger.Errorf("[Auth] Logout request failed: %v", err)
	}
	s.clearAuthData()
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) (json.RawMessage, error) {
	return s.api.post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) (json.RawMessage, error) {
	return s.api.post(ctx, "/auth/reset-password", map[string]string{"token": token, "password": password}, nil)
}

// RefreshToken exchanges the stored refresh token for a new session.
func (s *AuthService) RefreshToken(ctx context.Context) (*models.AuthResponse, error) {
	refresh, ok := s.storage.GetItem(RefreshTokenKey)
	if !ok || refresh == "" {
		return nil, common.ErrNoRefreshToken
	}
	return s.authenticate(ctx, "/auth/refresh", map[string]string{"refreshToken": refresh})
}

// UpdateProfile sends the changed fields and stores the returned user.
func (s *AuthService) UpdateProfile(ctx context.Context, changes map[string]interface{}) (*models.User, error) {
	var user models.User
	if _, err := s.api.put(ctx, "/auth/profile", changes, &user); err != nil {
		return nil, err
	}

	s.storage.SetObject(UserKey, user)
	s.mu.Lock()
	if s.session != nil {
		s.session.User = user
	}
	s.mu.Unlock()
	return &user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, currentPassword, newPassword string) (json.RawMessage, error) {
	return s.api.post(ctx, "/auth/change-password", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}, nil)
}

// ============ checks ============

// IsAuthenticated reports whether a token is stored and unexpired. An
// expired token tears the session down.
func (s *AuthService) IsAuthenticated() bool {
	token := s.GetToken()
	if token == "" {
		return false
	}
	if s.isTokenExpired(token) {
		logger.Println("[Auth] Token expired, clearing session")
		s.clearAuthData()
		return false
	}
	return true
}

// IsAdmin reports whether the authenticated user is an admin.
func (s *AuthService) IsAdmin() bool {
	if !s.IsAuthenticated() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAdmin()
}

// Session returns a copy of the active session, or nil.
func (s *AuthService) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

// CurrentUser returns the session user, or nil.
func (s *AuthService) CurrentUser() *models.User {
	if sess := s.Session(); sess != nil {
		return &sess.User
	}
	return nil
}

// GetToken returns the stored auth token.
func (s *AuthService) GetToken() string {
	token, _ := s.storage.GetItem(TokenKey)
	return token
}

// ============ internals ============

func (s *AuthService) authenticate(ctx context.Context, endpoint string, body interface{}) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if _, err := s.api.post(ctx, endpoint, body, &resp); err != nil {
		return nil, err
	}
	s.handleAuthSuccess(resp)
	return &resp, nil
}

func (s *AuthService) handleAuthSuccess(resp models.AuthResponse) {
	s.storage.SetItem(TokenKey, resp.Token)
	if resp.RefreshToken != "" {
		s.storage.SetItem(RefreshTokenKey, resp.RefreshToken)
	}
	s.storage.SetObject(UserKey, resp.User)

	s.mu.Lock()
	s.session = &Session{
		User:         resp.User,
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		CreatedAt:    s.clock.Now().UTC(),
	}
	s.mu.Unlock()

	logger.Printf("[Auth] ✅ Authenticated as %s", resp.User.Email)
}

func (s *AuthService) loadSessionFromStorage() {
	raw, ok := s.storage.GetItem(UserKey)
	if !ok || !s.IsAuthenticated() {
		return
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		logger.Errorf("[Auth] Error parsing user from storage: %v", err)
		s.clearAuthData()
		return
	}

	refresh, _ := s.storage.GetItem(RefreshTokenKey)
	s.mu.Lock()
	s.session = &Session{
		User:         user,
		Token:        s.GetToken(),
		RefreshToken: refresh,
		CreatedAt:    s.clock.Now().UTC(),
	}
	s.mu.Unlock()
}

func (s *AuthService) clearAuthData() {
	s.storage.RemoveItem(TokenKey)
	s.storage.RemoveItem(RefreshTokenKey)
	s.storage.RemoveItem(UserKey)

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// isTokenExpired decodes the JWT payload without verifying it. A token that
// cannot be decoded counts as expired; one without exp never expires.
func (s *AuthService) isTokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}
	return exp.Time.Before(s.clock.Now())
}
