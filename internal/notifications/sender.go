package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Notifier inserts one notification per due scholarship, absorbing duplicates.
type Notifier struct {
	writer      NotificationWriter
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewNotifier creates a Notifier. callTimeout of zero means no per-insert limit.
func NewNotifier(writer NotificationWriter, callTimeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{writer: writer, callTimeout: callTimeout, logger: logger}
}

// Notify attempts an insert for every due match. It returns the number of new
// notifications and one error entry per failed, non-duplicate insert. A
// failure never stops the remaining inserts.
func (n *Notifier) Notify(ctx context.Context, userID string, due []Match) (created int, errs []string) {
	for _, m := range due {
		err := n.insert(ctx, Notification{
			UserID:        userID,
			ScholarshipID: m.ScholarshipID,
			Message:       BuildMessage(m),
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicate):
			n.logger.Debug("notification already sent",
				"user_id", userID, "scholarship_id", m.ScholarshipID)
		default:
			n.logger.Warn("insert notification failed",
				"user_id", userID, "scholarship_id", m.ScholarshipID, "error", err)
			errs = append(errs, fmt.Sprintf("user %s, scholarship %s: %v", userID, m.ScholarshipID, err))
		}
	}
	return created, errs
}

func (n *Notifier) insert(ctx context.Context, notif Notification) error {
	if n.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.callTimeout)
		defer cancel()
	}
	return n.writer.InsertNotification(ctx, notif)
}
