package zikauth

import (
	"context"
	"time"

	"github.com/Fpierr/zikauth/jwt"
)

// UserProvider resolves users for login and for access-token subjects. Implementations
// return ErrUserNotFound for unknown users; any other error is treated as the provider
// being unavailable.
type UserProvider interface {
	GetUserByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
}

// UserRecord is what a UserProvider returns.
type UserRecord struct {
	UserID       string
	Name         string
	Email        string
	Role         string
	PasswordHash string
	Active       bool
}

// Identity is the public profile of an authenticated user.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Active bool   `json:"is_active"`
}

// Channel is the transport a request authenticated over.
type Channel string

const (
	ChannelWeb    Channel = "web"
	ChannelMobile Channel = "mobile"
)

// AuthResult is a successfully authenticated request.
type AuthResult struct {
	UserID    string
	User      Identity
	Claims    *jwt.Claims
	SessionID string
	Channel   Channel
}

// Tokens are the credentials issued by Login and Refresh.
type Tokens struct {
	User             Identity
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
	SessionExpiresAt time.Time
	CSRFToken        string
}

// RefreshRequest is the input of Engine.Refresh.
type RefreshRequest struct {
	RefreshToken string
	SessionID    string
}

// LogoutRequest is the input of Engine.Logout. RefreshToken is optional; when present
// it is revoked best effort.
type LogoutRequest struct {
	RefreshToken string
}
