package repository

import (
	"context"
	"strings"

	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/jon4hz/loaderdesk/internal/models"
)

// Settings holds the single value local entries.
// Settings changes are local only and never trigger a sync.
type Settings struct {
	r *Repositories
}

func getValue[T any](ctx context.Context, s *Settings, key string) (T, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return localstore.Load[T](ctx, s.r.store, key)
}

func setValue[T any](ctx context.Context, s *Settings, key string, value T) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return localstore.Save(ctx, s.r.store, key, value)
}

// MirrorSettings returns the stored GitHub mirror credentials.
func (s *Settings) MirrorSettings(ctx context.Context) (models.MirrorSettings, error) {
	return getValue[models.MirrorSettings](ctx, s, localstore.KeyGitHubConfig)
}

// SetMirrorSettings stores the GitHub mirror credentials.
func (s *Settings) SetMirrorSettings(ctx context.Context, settings models.MirrorSettings) error {
	settings.Owner = strings.TrimSpace(settings.Owner)
	settings.Repository = strings.TrimSpace(settings.Repository)
	settings.Branch = strings.TrimSpace(settings.Branch)
	return setValue(ctx, s, localstore.KeyGitHubConfig, settings)
}

// LoaderServerURL returns the URL the loader is served from.
func (s *Settings) LoaderServerURL(ctx context.Context) (string, error) {
	return getValue[string](ctx, s, localstore.KeyLoaderServerURL)
}

// SetLoaderServerURL stores the loader server URL.
func (s *Settings) SetLoaderServerURL(ctx context.Context, url string) error {
	return setValue(ctx, s, localstore.KeyLoaderServerURL, strings.TrimSuffix(strings.TrimSpace(url), "/"))
}

// APIBaseURL returns the base URL of the public API.
func (s *Settings) APIBaseURL(ctx context.Context) (string, error) {
	return getValue[string](ctx, s, localstore.KeyAPIBaseURL)
}

// SetAPIBaseURL stores the public API base URL.
func (s *Settings) SetAPIBaseURL(ctx context.Context, url string) error {
	return setValue(ctx, s, localstore.KeyAPIBaseURL, strings.TrimSuffix(strings.TrimSpace(url), "/"))
}

// DiscordBotFiles returns the files of the discord bot project.
func (s *Settings) DiscordBotFiles(ctx context.Context) ([]models.File, error) {
	files, err := getValue[[]models.File](ctx, s, localstore.KeyDiscordBotFiles)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []models.File{}
	}
	return files, nil
}

// SetDiscordBotFiles stores the files of the discord bot project.
func (s *Settings) SetDiscordBotFiles(ctx context.Context, files []models.File) error {
	for i := range files {
		f, err := validateFile(files[i])
		if err != nil {
			return err
		}
		files[i] = f
	}
	return setValue(ctx, s, localstore.KeyDiscordBotFiles, files)
}

// UserKey returns the key used for testing the loader.
func (s *Settings) UserKey(ctx context.Context) (string, error) {
	return getValue[string](ctx, s, localstore.KeyUserKey)
}

// SetUserKey stores the key used for testing the loader.
func (s *Settings) SetUserKey(ctx context.Context, key string) error {
	return setValue(ctx, s, localstore.KeyUserKey, strings.TrimSpace(key))
}

// AdminCredentials returns the stored admin discord id and key.
func (s *Settings) AdminCredentials(ctx context.Context) (discordID, key string, err error) {
	discordID, err = getValue[string](ctx, s, localstore.KeyAdminDiscordID)
	if err != nil {
		return "", "", err
	}
	key, err = getValue[string](ctx, s, localstore.KeyAdminKey)
	if err != nil {
		return "", "", err
	}
	return discordID, key, nil
}

// SetAdminCredentials stores the admin discord id and key.
func (s *Settings) SetAdminCredentials(ctx context.Context, discordID, key string) error {
	if err := setValue(ctx, s, localstore.KeyAdminDiscordID, discordID); err != nil {
		return err
	}
	return setValue(ctx, s, localstore.KeyAdminKey, key)
}

// Authenticated reports whether the last admin login succeeded and was not logged out.
func (s *Settings) Authenticated(ctx context.Context) (bool, error) {
	return getValue[bool](ctx, s, localstore.KeyAuthenticated)
}

// SetAuthenticated records an admin login or logout.
func (s *Settings) SetAuthenticated(ctx context.Context, authenticated bool) error {
	return setValue(ctx, s, localstore.KeyAuthenticated, authenticated)
}
