package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Store when a key has never been written.
var ErrNotFound = errors.New("local entry not found")

// Local cache keys.
const (
	KeyProjects        = "projects"
	KeyUsers           = "users"
	KeyBackups         = "backups"
	KeyAutoSaveState   = "autoSaveState"
	KeyAdminKey        = "adminKey"
	KeyAdminDiscordID  = "adminDiscordId"
	KeyAuthenticated   = "authenticated"
	KeyLoaderServerURL = "loaderServerUrl"
	KeyGitHubConfig    = "githubConfig"
	KeyDiscordBotFiles = "discordBotFiles"
	KeyUserKey         = "userKey"
	KeyAPIBaseURL      = "apiBaseUrl"
)

// Keys lists every key of the flat local namespace.
var Keys = []string{
	KeyProjects,
	KeyUsers,
	KeyBackups,
	KeyAutoSaveState,
	KeyAdminKey,
	KeyAdminDiscordID,
	KeyAuthenticated,
	KeyLoaderServerURL,
	KeyGitHubConfig,
	KeyDiscordBotFiles,
	KeyUserKey,
	KeyAPIBaseURL,
}

// Store is a key-namespaced persistence of serialized values. Last write wins.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// Load decodes the value stored under name. A missing key yields the zero value of T.
func Load[T any](ctx context.Context, s Store, name string) (T, error) {
	var result T
	data, err := s.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return result, nil
		}
		return result, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return result, nil
}

// Save encodes value and stores it under name.
func Save[T any](ctx context.Context, s Store, name string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := s.Set(ctx, name, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
