package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/jon4hz/loaderdesk/internal/localstore/mock"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/jon4hz/loaderdesk/internal/repository"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *mock.MockStore
	repos   *repository.Repositories
	changes int
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = mock.NewMockStore()
	s.repos = repository.New(s.store)
	s.changes = 0
	s.repos.OnChange(func(context.Context) { s.changes++ })
}

func (s *RepositoryTestSuite) TestAddUser_LimitedKey() {
	user, err := s.repos.Users.Add(s.ctx, models.User{Days: lo.ToPtr(30), Note: " vip "})
	s.Require().NoError(err)

	s.Len(user.Key, 32)
	s.Equal(models.UserStatusActive, user.Status)
	s.Equal(30, *user.Days)
	s.Equal(30, *user.DaysRemaining)
	s.Equal("vip", user.Note)
	s.False(user.CreatedAt.IsZero())
	s.Equal(1, s.changes)

	users, err := s.repos.Users.List(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
}

func (s *RepositoryTestSuite) TestAddUser_NegativeDays() {
	_, err := s.repos.Users.Add(s.ctx, models.User{Days: lo.ToPtr(-1)})
	s.True(models.IsValidationError(err))
	s.Equal(0, s.changes)
}

func (s *RepositoryTestSuite) TestUserLifecycle() {
	user, err := s.repos.Users.Add(s.ctx, models.User{})
	s.Require().NoError(err)

	banned, err := s.repos.Users.Ban(s.ctx, user.Key, "sharing key")
	s.Require().NoError(err)
	s.Equal(models.UserStatusBanned, banned.Status)
	s.Equal("sharing key", banned.BanReason)

	unbanned, err := s.repos.Users.Unban(s.ctx, user.Key)
	s.Require().NoError(err)
	s.Equal(models.UserStatusActive, unbanned.Status)
	s.Empty(unbanned.BanReason)

	_, err = s.repos.Users.ResetHWID(s.ctx, user.Key)
	s.Require().NoError(err)
	executed, err := s.repos.Users.RecordExecution(s.ctx, user.Key)
	s.Require().NoError(err)
	s.Equal(1, executed.HWIDResets)
	s.Equal(1, executed.Executions)
	s.NotNil(executed.LastExecution)

	_, err = s.repos.Users.SetStatus(s.ctx, user.Key, "Deleted")
	s.True(models.IsValidationError(err))

	_, err = s.repos.Users.Ban(s.ctx, "missing", "")
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *RepositoryTestSuite) TestExpireDays() {
	short, err := s.repos.Users.Add(s.ctx, models.User{Days: lo.ToPtr(1)})
	s.Require().NoError(err)
	long, err := s.repos.Users.Add(s.ctx, models.User{Days: lo.ToPtr(5)})
	s.Require().NoError(err)
	unlimited, err := s.repos.Users.Add(s.ctx, models.User{})
	s.Require().NoError(err)

	expired, err := s.repos.Users.ExpireDays(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, expired)

	got, err := s.repos.Users.Get(s.ctx, short.Key)
	s.Require().NoError(err)
	s.Equal(models.UserStatusExpired, got.Status)
	s.Equal(0, *got.DaysRemaining)

	got, err = s.repos.Users.Get(s.ctx, long.Key)
	s.Require().NoError(err)
	s.Equal(4, *got.DaysRemaining)

	got, err = s.repos.Users.Get(s.ctx, unlimited.Key)
	s.Require().NoError(err)
	s.Nil(got.DaysRemaining)
	s.Equal(models.UserStatusActive, got.Status)

	// renewing an expired key reactivates it
	renewed, err := s.repos.Users.SetDays(s.ctx, short.Key, lo.ToPtr(7))
	s.Require().NoError(err)
	s.Equal(models.UserStatusActive, renewed.Status)
	s.Equal(7, *renewed.DaysRemaining)
}

func (s *RepositoryTestSuite) TestAddProject_GeneratesIDs() {
	first, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)
	second, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Beta"})
	s.Require().NoError(err)

	s.NotEmpty(first.ID)
	s.Len(first.LoaderID, 32)
	s.NotEqual(first.LoaderID, second.LoaderID)
	s.NotNil(first.Files)

	// loader ids stay stable across mutations
	renamed, err := s.repos.Projects.Rename(s.ctx, first.ID, "Alpha 2")
	s.Require().NoError(err)
	s.Equal(first.LoaderID, renamed.LoaderID)

	byLoader, err := s.repos.Projects.GetByLoaderID(s.ctx, first.LoaderID)
	s.Require().NoError(err)
	s.Equal("Alpha 2", byLoader.Name)
}

func (s *RepositoryTestSuite) TestAdd_RejectsDuplicateIDs() {
	_, err := s.repos.Users.Add(s.ctx, models.User{Key: "4f2a9c"})
	s.Require().NoError(err)
	_, err = s.repos.Users.Add(s.ctx, models.User{Key: "4f2a9c"})
	s.True(models.IsValidationError(err))

	project, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)
	_, err = s.repos.Projects.Add(s.ctx, models.Project{Name: "Beta", ID: project.ID})
	s.True(models.IsValidationError(err))
	_, err = s.repos.Projects.Add(s.ctx, models.Project{Name: "Gamma", LoaderID: project.LoaderID})
	s.True(models.IsValidationError(err))

	users, err := s.repos.Users.List(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
	projects, err := s.repos.Projects.List(s.ctx)
	s.Require().NoError(err)
	s.Len(projects, 1)
	s.Equal(2, s.changes)
}

func (s *RepositoryTestSuite) TestAddProject_NameRequired() {
	_, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "  "})
	s.Require().Error(err)
	s.True(models.IsValidationError(err))

	projects, err := s.repos.Projects.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(projects)
	s.Equal(0, s.changes)
}

func (s *RepositoryTestSuite) TestProjectFiles() {
	project, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)

	_, err = s.repos.Projects.AddFile(s.ctx, project.ID, models.File{Name: "main.lua", Content: "print(1)"})
	s.Require().NoError(err)
	_, err = s.repos.Projects.AddFile(s.ctx, project.ID, models.File{Name: "util.lua"})
	s.Require().NoError(err)

	edited, err := s.repos.Projects.EditFile(s.ctx, project.ID, 0, models.File{Name: "main.lua", Content: "print(2)"})
	s.Require().NoError(err)
	s.Equal("print(2)", edited.Files[0].Content)

	_, err = s.repos.Projects.EditFile(s.ctx, project.ID, 5, models.File{Name: "x.lua"})
	s.ErrorIs(err, models.ErrNotFound)

	_, err = s.repos.Projects.AddFile(s.ctx, project.ID, models.File{Name: "a/b.lua"})
	s.True(models.IsValidationError(err))

	deleted, err := s.repos.Projects.DeleteFile(s.ctx, project.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(deleted.Files, 1)
	s.Equal("util.lua", deleted.Files[0].Name)

	state, err := s.repos.AutoSave.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, state.FilesSavedCount)
}

func (s *RepositoryTestSuite) TestUpdateSettings() {
	project, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha", Cooldown: lo.ToPtr(10)})
	s.Require().NoError(err)

	updated, err := s.repos.Projects.UpdateSettings(s.ctx, project.ID, models.ProjectSettings{
		HWIDResetAllowed: lo.ToPtr(true),
		Webhooks:         &models.Webhooks{Ban: "https://discord.example/ban"},
	})
	s.Require().NoError(err)
	s.True(*updated.HWIDResetAllowed)
	s.Equal(10, *updated.Cooldown)
	s.Equal("https://discord.example/ban", updated.Webhooks.Ban)
}

func (s *RepositoryTestSuite) TestDeleteProject() {
	project, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)

	s.Require().NoError(s.repos.Projects.Delete(s.ctx, project.ID))
	s.ErrorIs(s.repos.Projects.Delete(s.ctx, project.ID), models.ErrNotFound)

	_, err = s.repos.Projects.Get(s.ctx, project.ID)
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *RepositoryTestSuite) TestBackupsAreCapped() {
	_, err := s.repos.Users.Add(s.ctx, models.User{})
	s.Require().NoError(err)

	var last *models.Backup
	for range repository.MaxBackups + 1 {
		last, err = s.repos.TriggerManualBackup(s.ctx)
		s.Require().NoError(err)
	}

	backups, err := s.repos.Backups.List(s.ctx)
	s.Require().NoError(err)
	s.Len(backups, repository.MaxBackups)
	s.Equal(last.ID, backups[0].ID)
	s.Len(backups[0].Users, 1)

	state, err := s.repos.AutoSave.Get(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(state.LastBackupTime)
	s.True(state.LastBackupTime.Equal(last.Timestamp))
}

func (s *RepositoryTestSuite) TestRestoreBackup() {
	_, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)
	backup, err := s.repos.TriggerManualBackup(s.ctx)
	s.Require().NoError(err)

	_, err = s.repos.Projects.Add(s.ctx, models.Project{Name: "Beta"})
	s.Require().NoError(err)

	_, err = s.repos.RestoreBackup(s.ctx, backup.ID)
	s.Require().NoError(err)

	projects, err := s.repos.Projects.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(projects, 1)
	s.Equal("Alpha", projects[0].Name)

	_, err = s.repos.RestoreBackup(s.ctx, "missing")
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *RepositoryTestSuite) TestReplaceDoesNotTriggerHook() {
	s.Require().NoError(s.repos.Users.Replace(s.ctx, []models.User{{Key: "abc"}}))
	s.Require().NoError(s.repos.Projects.Replace(s.ctx, nil))
	s.Equal(0, s.changes)

	projects, err := s.repos.Projects.List(s.ctx)
	s.Require().NoError(err)
	s.NotNil(projects)
	s.Equal("[]", string(s.store.Raw(localstore.KeyProjects)))
}

func (s *RepositoryTestSuite) TestSettings() {
	s.Require().NoError(s.repos.Settings.SetMirrorSettings(s.ctx, models.MirrorSettings{Token: "t", Owner: " me ", Repository: "scripts"}))
	settings, err := s.repos.Settings.MirrorSettings(s.ctx)
	s.Require().NoError(err)
	s.Equal("me", settings.Owner)
	s.True(settings.Configured())

	s.Require().NoError(s.repos.Settings.SetLoaderServerURL(s.ctx, "https://loader.example.com/"))
	url, err := s.repos.Settings.LoaderServerURL(s.ctx)
	s.Require().NoError(err)
	s.Equal("https://loader.example.com", url)
	s.Equal(0, s.changes)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockStore()
	repos := repository.New(store)

	changed := false
	repos.OnChange(func(context.Context) { changed = true })

	store.SetError = errors.New("disk full")
	_, err := repos.Users.Add(ctx, models.User{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, changed)
}

func TestFileSaveFailure_DoesNotCountFile(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockStore()
	repos := repository.New(store)

	project, err := repos.Projects.Add(ctx, models.Project{Name: "Alpha"})
	require.NoError(t, err)

	store.KeySetErrors[localstore.KeyProjects] = errors.New("disk full")
	_, err = repos.Projects.AddFile(ctx, project.ID, models.File{Name: "main.lua", Content: "print(1)"})
	require.Error(t, err)

	state, err := repos.AutoSave.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, state.FilesSavedCount)

	delete(store.KeySetErrors, localstore.KeyProjects)
	_, err = repos.Projects.AddFile(ctx, project.ID, models.File{Name: "main.lua", Content: "print(1)"})
	require.NoError(t, err)

	state, err = repos.AutoSave.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.FilesSavedCount)
}
