package domain

// NotificationKind identifies which single-use token a notification carries.
type NotificationKind string

const (
	NotificationVerification  NotificationKind = "verification"
	NotificationPasswordReset NotificationKind = "password_reset"
)

// Notification is handed to the delivery collaborator. It carries the
// plaintext token, so it must never be logged as a whole.
type Notification struct {
	IdentityID string           `json:"identity_id"`
	Email      string           `json:"email"`
	Username   string           `json:"username"`
	Token      string           `json:"token"`
	Kind       NotificationKind `json:"kind"`
}
