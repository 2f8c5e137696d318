package services

import (
	"context"

	"github.com/everkeep/everkeep/internal/logging"
)

// Notifier delivers outbound messages to people involved in a vault:
// invitation tokens, verification codes, removal notices. Delivery is
// best-effort; callers log failures and never roll back the triggering
// operation because of one.
type Notifier interface {
	// Invitation tells the nominee they were nominated and carries the
	// single-use acceptance token.
	Invitation(ctx context.Context, email string, name string, token string) error

	// VerificationCode delivers the one-time email verification code.
	VerificationCode(ctx context.Context, email string, code string) error

	// ContactRemoved tells both the owner and the removed contact that the
	// nomination was withdrawn or declined.
	ContactRemoved(ctx context.Context, ownerEmail string, contactEmail string) error
}

// LogNotifier writes notifications to the structured log instead of an
// external delivery channel. It is the default implementation; a real
// mail transport plugs in behind the same interface.
type LogNotifier struct {
	log logging.Logger
}

// NewLogNotifier constructs a LogNotifier on the given logger.
func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("component", "notifier")}
}

func (n *LogNotifier) Invitation(ctx context.Context, email string, name string, token string) error {
	n.log.Info(ctx, "invitation issued", "email", email, "name", name, "token", token)
	return nil
}

func (n *LogNotifier) VerificationCode(ctx context.Context, email string, code string) error {
	n.log.Info(ctx, "verification code issued", "email", email, "code", code)
	return nil
}

func (n *LogNotifier) ContactRemoved(ctx context.Context, ownerEmail string, contactEmail string) error {
	n.log.Info(ctx, "contact removed", "owner", ownerEmail, "contact", contactEmail)
	return nil
}
