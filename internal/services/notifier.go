package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/data/repos"
	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
	"github.com/waypointhq/onboarding-backend/internal/platform/sendgrid"
)

const (
	NotificationMentorAssigned = "mentor_assigned"
	NotificationPhaseStarted   = "phase_started"
)

// Notifier delivers a best-effort notification to a user. Implementations
// must not assume the caller handles delivery failures beyond logging.
type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, kind string, data map[string]string) error
}

type mailNotifier struct {
	log   *logger.Logger
	users repos.UserRepo
	mail  sendgrid.Client
}

func NewMailNotifier(baseLog *logger.Logger, users repos.UserRepo, mail sendgrid.Client) Notifier {
	return &mailNotifier{
		log:   baseLog.With("service", "MailNotifier"),
		users: users,
		mail:  mail,
	}
}

func (n *mailNotifier) Notify(ctx context.Context, recipientID uuid.UUID, kind string, data map[string]string) error {
	if n.mail == nil {
		n.log.Debug("mail disabled, notification dropped", "kind", kind, "recipient_id", recipientID)
		return nil
	}
	recipient, err := n.users.GetByID(dbctx.Context{Ctx: ctx}, recipientID)
	if err != nil {
		return err
	}
	if recipient == nil || strings.TrimSpace(recipient.Email) == "" {
		return fmt.Errorf("recipient %s has no email address", recipientID)
	}

	subject, text := renderNotification(kind, data)
	_, err = n.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: recipient.Email, Name: recipient.FullName()}},
		Subject: subject,
		Text:    text,
	})
	return err
}

func renderNotification(kind string, data map[string]string) (subject, text string) {
	switch kind {
	case NotificationMentorAssigned:
		subject = fmt.Sprintf("You've been assigned as a mentor for %s", data["employee_name"])
		text = fmt.Sprintf(
			"Hi %s,\n\nYou are now the mentor for %s during the %q phase.\nThe phase starts %s and runs for %s days.\n\nThanks for mentoring!",
			data["mentor_name"], data["employee_name"], data["phase_title"], data["start_date"], data["duration_days"],
		)
	case NotificationPhaseStarted:
		subject = fmt.Sprintf("Your %q phase has started", data["phase_title"])
		text = fmt.Sprintf(
			"Hi %s,\n\nYour %q phase is now in progress. It is due on %s.",
			data["employee_name"], data["phase_title"], data["due_date"],
		)
	default:
		subject = "Onboarding update"
		text = "There is an update on your onboarding journey."
	}
	return subject, text
}
