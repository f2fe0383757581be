package models

import "encoding/json"

// RoleAdmin is the role granted to dashboard operators.
const RoleAdmin = "admin"

// User 用户信息
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Avatar    string `json:"avatar,omitempty"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type AuthResponse struct {
	User         User   `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// SentEvent is one entry of the admin submission audit trail.
type SentEvent struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Response  json.RawMessage `json:"response"`
	Timestamp string          `json:"timestamp"`
}
