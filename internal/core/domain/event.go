package domain

import "time"

// AuthEventType classifies an entry of the authentication audit trail.
type AuthEventType string

const (
	EventLoginSucceeded AuthEventType = "login_succeeded"
	EventLoginFailed    AuthEventType = "login_failed"
	EventUserRegistered AuthEventType = "user_registered"
	EventUserCreated    AuthEventType = "user_created"
	EventRoleChanged    AuthEventType = "role_changed"
	EventUserDeleted    AuthEventType = "user_deleted"
)

// AuthEvent records something that happened to an account.
type AuthEvent struct {
	Type      AuthEventType
	Subject   string // email or user id the event is about
	ActorID   string // empty for self-service actions
	Role      Role   // role after the event, when relevant
	Reason    AuthFailureReason
	IP        string
	Timestamp time.Time
}
