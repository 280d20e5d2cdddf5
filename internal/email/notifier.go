package email

import (
	"context"
	"fmt"

	"planpass/internal/events"
	"planpass/internal/user"
)

type UserFinder interface {
	GetByID(ctx context.Context, userID int) (*user.User, error)
}

// Notifier turns lifecycle events into queued emails to the subscriber.
type Notifier struct {
	users  UserFinder
	emails *Service
}

func NewNotifier(users UserFinder, emails *Service) *Notifier {
	return &Notifier{users: users, emails: emails}
}

func (n *Notifier) Publish(ctx context.Context, evt events.Event) error {
	u, err := n.users.GetByID(ctx, evt.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient %d: %w", evt.UserID, err)
	}

	subject, body := compose(evt, u.Name)
	return n.emails.Send(ctx, u.Email, u.Name, subject, body)
}

const dateLayout = "Jan 2, 2006"

func compose(evt events.Event, name string) (string, string) {
	planName := evt.PlanName
	if planName == "" {
		planName = "your plan"
	}

	switch evt.Type {
	case events.TypeCreated:
		return "Your subscription is active", fmt.Sprintf(`Hi %s,

Your subscription to %s is now active.

Valid until: %s

- PlanPass Team`, name, planName, evt.EndDate.Format(dateLayout))

	case events.TypeUpgraded:
		return "Your plan has changed", fmt.Sprintf(`Hi %s,

You are now on %s. Your subscription period restarted today.

Valid until: %s

- PlanPass Team`, name, planName, evt.EndDate.Format(dateLayout))

	case events.TypeCancelled:
		return "Your subscription was cancelled", fmt.Sprintf(`Hi %s,

Your subscription has been cancelled. You can subscribe again at any time.

- PlanPass Team`, name)

	case events.TypeExpired:
		return "Your subscription has expired", fmt.Sprintf(`Hi %s,

Your subscription ended on %s. Choose a plan to continue.

- PlanPass Team`, name, evt.EndDate.Format(dateLayout))
	}

	return "Subscription update", fmt.Sprintf(`Hi %s,

Your subscription status is now %s.

- PlanPass Team`, name, evt.Status)
}
