package authsdk

import "time"

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the wire form of an APIError.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Session Types
// ============================================================================

// LoginRequest is the body of POST /auth/login. Role is the role the caller
// wants to act as; it must be one the identity holds.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
	Role     string `json:"role"     validate:"required,max=64"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest is the body of POST /auth/logout. AllDevices drops every
// refresh token of the owner instead of just the presented one.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
	AllDevices   bool   `json:"allDevices"`
}

// SessionResponse is returned by login and refresh.
type SessionResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
}

// ============================================================================
// Credential Verifier Types
// ============================================================================

// VerifyRequest is the body of POST /verify on the identity service.
type VerifyRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// VerifyResponse is the identity returned by a successful /verify.
type VerifyResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// ============================================================================
// Identity Admin Types
// ============================================================================

// CreateUserRequest is the body of POST /api/admin/users.
type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=64"`
	Password string   `json:"password" validate:"required,min=8,max=256"`
	Roles    []string `json:"roles"    validate:"required,min=1,dive,required,max=64,role"`
}

// WhoAmIResponse is the principal a backend received through the trust
// relay.
type WhoAmIResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// UserResponse describes an identity without its credentials.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks holds per-dependency results (only for /readyz). Keys are
	// dependency names such as "database" or "signer".
	Checks map[string]string `json:"checks,omitempty"`
}
