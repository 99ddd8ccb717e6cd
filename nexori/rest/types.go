package rest

import "github.com/DesarrolloAlpha/Nexori-sub001/nexori"

// Authentication types

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserInfo describes the authenticated user.
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// TokenResponse contains the JWT token returned after successful authentication.
type TokenResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// Panic event types

// CreatePanicRequest is the request body for raising a panic alert.
type CreatePanicRequest struct {
	Priority nexori.Priority `json:"priority"`
	Location string          `json:"location,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

// UpdatePanicRequest is the request body for changing a panic event.
// Empty fields are left untouched by the server.
type UpdatePanicRequest struct {
	Status      nexori.PanicStatus `json:"status,omitempty"`
	Priority    nexori.Priority    `json:"priority,omitempty"`
	Notes       string             `json:"notes,omitempty"`
	Attachments []string           `json:"attachments,omitempty"`
}

// panicResponse wraps single-record responses.
type panicResponse struct {
	Data nexori.PanicEvent `json:"data"`
}

// panicListResponse wraps list responses.
type panicListResponse struct {
	Data []nexori.PanicEvent `json:"data"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
