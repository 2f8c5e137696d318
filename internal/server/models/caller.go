package models

// CallerContext identifies who is invoking the access gateway. It is an
// explicit value passed into every gateway call instead of ambient session
// state, so authorization stays testable without an HTTP framework.
type CallerContext struct {
	UserID  string
	IsAdmin bool
}
