package booking

import (
	"context"
	"errors"
	"fmt"

	"trainerbook/internal/email"
	"trainerbook/internal/logger"
	"trainerbook/internal/user"
)

// notifyUsers sends one message per contactable user. A failed recipient does
// not stop the rest; all failures are returned together.
func (s *Service) notifyUsers(ctx context.Context, userIDs []int, render func(u *user.User) email.Message) error {
	if len(userIDs) == 0 {
		return nil
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	return s.send(ctx, users, render)
}

func (s *Service) send(ctx context.Context, users []user.User, render func(u *user.User) email.Message) error {
	var errs []error
	for i := range users {
		u := &users[i]
		if !u.Contactable() {
			logger.Debug("skipping notification, user not contactable", "user_id", u.ID)
			continue
		}
		msg := render(u)
		if err := s.notifier.Send(ctx, *u.Email, msg.Subject, msg.Body); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", u.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) notifyAdmins(ctx context.Context, exceptID int, render func(u *user.User) email.Message) error {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("load admins: %w", err)
	}
	recipients := make([]user.User, 0, len(admins))
	for _, a := range admins {
		if a.ID != exceptID {
			recipients = append(recipients, a)
		}
	}
	return s.send(ctx, recipients, render)
}

func without(ids []int, skip ...int) []int {
	out := make([]int, 0, len(ids))
next:
	for _, id := range ids {
		for _, s := range skip {
			if id == s {
				continue next
			}
		}
		out = append(out, id)
	}
	return out
}
