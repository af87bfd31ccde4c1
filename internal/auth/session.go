package auth

import "github.com/google/uuid"

// Session is the server-issued session record for the authenticated user.
// It is produced by the auth middleware from the bearer token claims and is
// read-only for everything downstream.
type Session struct {
	UserID             uuid.UUID `json:"user_id"`
	AccountHandle      string    `json:"account_handle,omitempty"`
	LinkedAccountID    string    `json:"linked_account_id,omitempty"`
	LinkedAccountName  string    `json:"linked_account_name,omitempty"`
	LinkedAccountImage string    `json:"linked_account_image,omitempty"`
}
