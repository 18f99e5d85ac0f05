package repository

import (
	"context"
	"strings"

	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/samber/lo"
)

// Users manages license keys.
type Users struct {
	r *Repositories
}

// List returns every user.
func (u *Users) List(ctx context.Context) ([]models.User, error) {
	return list[models.User](ctx, u.r, localstore.KeyUsers)
}

// Get returns the user with the given key.
func (u *Users) Get(ctx context.Context, key string) (*models.User, error) {
	users, err := u.List(ctx)
	if err != nil {
		return nil, err
	}
	user, ok := lo.Find(users, func(user models.User) bool { return user.Key == key })
	if !ok {
		return nil, models.ErrNotFound
	}
	return &user, nil
}

// Add stores a new user. A missing key is generated, a limited key starts with all its days remaining.
func (u *Users) Add(ctx context.Context, user models.User) (*models.User, error) {
	if user.Days != nil && *user.Days < 0 {
		return nil, models.NewValidationError("days", "must not be negative")
	}
	if user.Key == "" {
		user.Key = newSecureID()
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = u.r.now()
	}
	if user.Days != nil && user.DaysRemaining == nil {
		user.DaysRemaining = lo.ToPtr(*user.Days)
	}
	user.Note = strings.TrimSpace(user.Note)

	_, err := update(ctx, u.r, localstore.KeyUsers, func(users []models.User) ([]models.User, error) {
		if lo.ContainsBy(users, func(existing models.User) bool { return existing.Key == user.Key }) {
			return nil, models.NewValidationError("key", "key already in use")
		}
		return append(users, user), nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// modify applies fn to the user with the given key.
func (u *Users) modify(ctx context.Context, key string, fn func(user *models.User) error) (*models.User, error) {
	var result models.User
	_, err := update(ctx, u.r, localstore.KeyUsers, func(users []models.User) ([]models.User, error) {
		_, idx, ok := lo.FindIndexOf(users, func(user models.User) bool { return user.Key == key })
		if !ok {
			return nil, models.ErrNotFound
		}
		if err := fn(&users[idx]); err != nil {
			return nil, err
		}
		result = users[idx]
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SetStatus changes the status of a user.
func (u *Users) SetStatus(ctx context.Context, key string, status models.UserStatus) (*models.User, error) {
	switch status {
	case models.UserStatusActive, models.UserStatusBanned, models.UserStatusExpired:
	default:
		return nil, models.NewValidationError("status", "must be Active, Banned or Expired")
	}
	return u.modify(ctx, key, func(user *models.User) error {
		user.Status = status
		if status != models.UserStatusBanned {
			user.BanReason = ""
		}
		return nil
	})
}

// Ban bans a user with a reason.
func (u *Users) Ban(ctx context.Context, key, reason string) (*models.User, error) {
	return u.modify(ctx, key, func(user *models.User) error {
		user.Status = models.UserStatusBanned
		user.BanReason = strings.TrimSpace(reason)
		return nil
	})
}

// Unban lifts a ban. Keys without remaining days become expired instead of active.
func (u *Users) Unban(ctx context.Context, key string) (*models.User, error) {
	return u.modify(ctx, key, func(user *models.User) error {
		user.BanReason = ""
		if user.DaysRemaining != nil && *user.DaysRemaining <= 0 {
			user.Status = models.UserStatusExpired
			return nil
		}
		user.Status = models.UserStatusActive
		return nil
	})
}

// UpdateNote replaces the note of a user.
func (u *Users) UpdateNote(ctx context.Context, key, note string) (*models.User, error) {
	return u.modify(ctx, key, func(user *models.User) error {
		user.Note = strings.TrimSpace(note)
		return nil
	})
}

// SetAntiCheat toggles the anti-cheat flag of a user.
func (u *Users) SetAntiCheat(ctx context.Context, key string, enabled bool) (*models.User, error) {
	return u.modify(ctx, key, func(user *models.User) error {
		user.AntiCheat = enabled
		return nil
	})
}

// SetDiscordID links a user to a discord account.
func (u *Users) SetDiscordID(ctx context.Context, key, discordID string) (*models.User, error) {
	return u.modify(ctx, key, func(user *models.User) error {
		user.DiscordID = strings.TrimSpace(discordID)
		return nil
	})
}

// ResetHWID counts a hardware id reset.
func (u *Users) ResetHWID(ctx context.Context, key string) (*models.User, error) {
	return u.modify(ctx, key, func(user *models.User) error {
		user.HWIDResets++
		return nil
	})
}

// RecordExecution counts a loader execution.
func (u *Users) RecordExecution(ctx context.Context, key string) (*models.User, error) {
	return u.modify(ctx, key, func(user *models.User) error {
		user.Executions++
		user.LastExecution = lo.ToPtr(u.r.now())
		return nil
	})
}

// SetDays sets the key duration. Nil makes the key unlimited.
func (u *Users) SetDays(ctx context.Context, key string, days *int) (*models.User, error) {
	if days != nil && *days < 0 {
		return nil, models.NewValidationError("days", "must not be negative")
	}
	return u.modify(ctx, key, func(user *models.User) error {
		if days == nil {
			user.Days = nil
			user.DaysRemaining = nil
		} else {
			user.Days = lo.ToPtr(*days)
			user.DaysRemaining = lo.ToPtr(*days)
		}
		if user.Status == models.UserStatusExpired && (days == nil || *days > 0) {
			user.Status = models.UserStatusActive
		}
		return nil
	})
}

// ExpireDays decrements the remaining days of every active limited key and
// expires keys that reach zero. It returns the number of newly expired keys.
func (u *Users) ExpireDays(ctx context.Context) (int, error) {
	expired := 0
	changed := false

	u.r.mu.Lock()
	users, err := localstore.Load[[]models.User](ctx, u.r.store, localstore.KeyUsers)
	if err != nil {
		u.r.mu.Unlock()
		return 0, err
	}
	for i := range users {
		user := &users[i]
		if user.Status != models.UserStatusActive || user.DaysRemaining == nil {
			continue
		}
		remaining := max(*user.DaysRemaining-1, 0)
		user.DaysRemaining = lo.ToPtr(remaining)
		changed = true
		if remaining == 0 {
			user.Status = models.UserStatusExpired
			expired++
		}
	}
	if changed {
		if err := localstore.Save(ctx, u.r.store, localstore.KeyUsers, users); err != nil {
			u.r.mu.Unlock()
			return 0, err
		}
	}
	u.r.mu.Unlock()

	if changed {
		u.r.changed(ctx)
	}
	return expired, nil
}

// Replace overwrites every user without triggering change hooks.
func (u *Users) Replace(ctx context.Context, users []models.User) error {
	return replace(ctx, u.r, localstore.KeyUsers, users)
}
