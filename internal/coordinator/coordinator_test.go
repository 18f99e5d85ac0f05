package coordinator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jon4hz/loaderdesk/internal/coordinator"
	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/docstore/memory"
	"github.com/jon4hz/loaderdesk/internal/localstore"
	"github.com/jon4hz/loaderdesk/internal/localstore/mock"
	"github.com/jon4hz/loaderdesk/internal/mirror"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/jon4hz/loaderdesk/internal/repository"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const syncUser = "561293567780192273"

// fakeFiles is an in-memory mirror.FileStore.
type fakeFiles struct {
	mu    sync.Mutex
	files map[string]string
	err   error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: map[string]string{}}
}

func (f *fakeFiles) Name() string { return "fake" }

func (f *fakeFiles) FileExists(_ context.Context, path string) (*mirror.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; !ok {
		return nil, nil
	}
	return &mirror.FileInfo{Path: path, SHA: "sha"}, nil
}

func (f *fakeFiles) CreateFile(_ context.Context, path string, content []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return &mirror.Error{Op: "create", Path: path, Err: f.err}
	}
	f.files[path] = string(content)
	return nil
}

func (f *fakeFiles) UpdateFile(ctx context.Context, path string, content []byte, _ string, message string) error {
	return f.CreateFile(ctx, path, content, message)
}

func (f *fakeFiles) ListFiles(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Keys(f.files), nil
}

func (f *fakeFiles) get(path string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	return content, ok
}

type CoordinatorTestSuite struct {
	suite.Suite
	ctx    context.Context
	local  *mock.MockStore
	remote *memory.Store
	docs   *docstore.Client
	repos  *repository.Repositories
	coord  *coordinator.Coordinator
	views  []coordinator.Views
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.local = mock.NewMockStore()
	s.remote = memory.New()
	s.docs = docstore.NewClient(s.remote)
	s.repos = repository.New(s.local)
	s.coord = coordinator.New(s.repos, s.docs, mirror.NewJournal(50), coordinator.Options{
		UserID:        syncUser,
		ProbeInterval: 5 * time.Millisecond,
		ProbeAttempts: 200,
	})
	s.views = nil
	s.coord.OnRefresh(func(v coordinator.Views) { s.views = append(s.views, v) })
	s.repos.OnChange(s.coord.Save)
}

func (s *CoordinatorTestSuite) TearDownTest() {
	s.coord.Close()
	_ = s.docs.Close(s.ctx)
}

func (s *CoordinatorTestSuite) initialize() {
	s.Require().NoError(s.coord.Initialize(s.ctx))
	s.Require().True(s.coord.CloudSyncEnabled())
}

func (s *CoordinatorTestSuite) TestInitialize_PullsExistingDocument() {
	s.remote.Seed(docstore.CollectionUsers, syncUser, docstore.Document{
		"users":    []any{map[string]any{"key": "abc", "status": "Active"}},
		"lastSync": "2024-05-01T10:00:00Z",
	})

	s.initialize()

	users, err := s.repos.Users.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("abc", users[0].Key)
	s.Require().NotNil(s.coord.LastSync())
	s.Equal(2024, s.coord.LastSync().Year())
	s.Equal(1, s.remote.Watchers(docstore.CollectionUsers, syncUser))
}

func (s *CoordinatorTestSuite) TestInitialize_Unavailable() {
	s.remote.ConnectError = errors.New("connection refused")

	err := s.coord.Initialize(s.ctx)
	s.ErrorIs(err, docstore.ErrUnavailable)
	s.False(s.coord.CloudSyncEnabled())

	// mutations keep working locally
	_, err = s.repos.Users.Add(s.ctx, models.User{})
	s.Require().NoError(err)
	s.Equal(0, s.remote.PutCount(docstore.CollectionUsers, syncUser))

	// an explicit retry connects
	s.remote.ConnectError = nil
	s.Require().NoError(s.coord.Retry(s.ctx))
	s.True(s.coord.CloudSyncEnabled())
}

func (s *CoordinatorTestSuite) TestInitialize_NoRemote() {
	coord := coordinator.New(s.repos, nil, nil, coordinator.Options{UserID: syncUser})
	s.ErrorIs(coord.Initialize(s.ctx), docstore.ErrUnavailable)
	s.ErrorIs(coord.PushLocalToRemote(s.ctx), docstore.ErrUnavailable)
}

func (s *CoordinatorTestSuite) TestPush_WritesMergedDocument() {
	s.remote.Seed(docstore.CollectionUsers, syncUser, docstore.Document{"theme": "dark"})
	s.initialize()

	_, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)

	doc := s.remote.Doc(docstore.CollectionUsers, syncUser)
	s.Equal("dark", doc["theme"])
	s.Len(doc["projects"], 1)
	s.Contains(doc, "users")
	s.Contains(doc, "backups")
	s.Contains(doc, "autoSaveState")
	s.NotEmpty(doc["lastSync"])
	s.NotNil(s.coord.LastSync())
}

func (s *CoordinatorTestSuite) TestPull_UsersOnlyKeepsProjectsAndBackups() {
	s.initialize()

	_, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)
	_, err = s.repos.TriggerManualBackup(s.ctx)
	s.Require().NoError(err)
	projectsBefore := s.local.Raw(localstore.KeyProjects)
	backupsBefore := s.local.Raw(localstore.KeyBackups)

	err = s.coord.PullRemoteToLocal(s.ctx, docstore.Document{
		"users": []any{map[string]any{"key": "remote-key", "status": "Banned"}},
	})
	s.Require().NoError(err)

	s.Equal(projectsBefore, s.local.Raw(localstore.KeyProjects))
	s.Equal(backupsBefore, s.local.Raw(localstore.KeyBackups))

	users, err := s.repos.Users.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(models.UserStatusBanned, users[0].Status)
}

func (s *CoordinatorTestSuite) TestPull_IgnoresNonSequenceFields() {
	_, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)

	err = s.coord.PullRemoteToLocal(s.ctx, docstore.Document{"projects": "not a list"})
	s.Require().NoError(err)

	projects, err := s.repos.Projects.List(s.ctx)
	s.Require().NoError(err)
	s.Len(projects, 1)
}

func (s *CoordinatorTestSuite) TestOwnPushNotificationIsIgnored() {
	s.initialize()
	setCallsBefore := s.local.SetCalls[localstore.KeyProjects]

	s.Require().NoError(s.coord.PushLocalToRemote(s.ctx))

	// the memory store notified synchronously while the push was in flight
	s.Equal(1, s.remote.PutCount(docstore.CollectionUsers, syncUser))
	s.Equal(setCallsBefore, s.local.SetCalls[localstore.KeyProjects])
	s.False(s.coord.SyncInProgress())
}

func (s *CoordinatorTestSuite) TestRemoteChangeIsPulled() {
	s.initialize()

	err := s.docs.Write(s.ctx, docstore.CollectionUsers, syncUser, docstore.Document{
		"projects": []any{map[string]any{"id": "p1", "name": "From another client", "loaderId": "l1", "files": []any{}}},
	}, docstore.Merge())
	s.Require().NoError(err)

	project, err := s.repos.Projects.Get(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal("From another client", project.Name)
	s.Require().NotEmpty(s.views)
	s.True(s.views[len(s.views)-1].ProjectSectionVisible)
}

func (s *CoordinatorTestSuite) TestRetry_SubscriptionOutlivesCallerContext() {
	reqCtx, cancel := context.WithCancel(s.ctx)
	s.Require().NoError(s.coord.Retry(reqCtx))
	cancel()

	s.True(s.coord.CloudSyncEnabled())
	s.Never(func() bool {
		return s.remote.Watchers(docstore.CollectionUsers, syncUser) == 0
	}, 50*time.Millisecond, 5*time.Millisecond)

	err := s.docs.Write(s.ctx, docstore.CollectionUsers, syncUser, docstore.Document{
		"users": []any{map[string]any{"key": "remote-key", "status": "Active"}},
	}, docstore.Merge())
	s.Require().NoError(err)

	users, err := s.repos.Users.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("remote-key", users[0].Key)
}

func (s *CoordinatorTestSuite) TestDeleteLastProjectHidesProjectSection() {
	project, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)
	s.Require().NotEmpty(s.views)
	s.True(s.views[len(s.views)-1].ProjectSectionVisible)

	s.Require().NoError(s.repos.Projects.Delete(s.ctx, project.ID))
	s.False(s.views[len(s.views)-1].ProjectSectionVisible)
	s.Equal(0, s.views[len(s.views)-1].Projects)
}

func (s *CoordinatorTestSuite) TestLookupDocuments() {
	s.initialize()

	project, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)
	s.Nil(s.remote.Doc(docstore.CollectionProjects, project.LoaderID), "projects without files are not mirrored")

	_, err = s.repos.Projects.AddFile(s.ctx, project.ID, models.File{Name: "main.lua", Content: "print(1)"})
	s.Require().NoError(err)
	user, err := s.repos.Users.Add(s.ctx, models.User{Days: lo.ToPtr(30)})
	s.Require().NoError(err)

	projectDoc := s.remote.Doc(docstore.CollectionProjects, project.LoaderID)
	s.Require().NotNil(projectDoc)
	s.Equal("Alpha", projectDoc["name"])
	s.NotEmpty(projectDoc["updatedAt"])

	userDoc := s.remote.Doc(docstore.CollectionUsers, user.Key)
	s.Require().NotNil(userDoc)
	s.Equal("Active", userDoc["status"])
	s.InDelta(30, userDoc["daysRemaining"], 0)
}

func (s *CoordinatorTestSuite) TestMirrorFiles() {
	files := newFakeFiles()
	s.coord.SetMirror(files)

	project, err := s.repos.Projects.Add(s.ctx, models.Project{Name: "Alpha"})
	s.Require().NoError(err)
	_, err = s.repos.Projects.AddFile(s.ctx, project.ID, models.File{Name: "main.lua", Content: "print(1)"})
	s.Require().NoError(err)

	content, ok := files.get("projects/" + project.LoaderID + "/main.lua")
	s.Require().True(ok)
	s.Equal("print(1)", content)
	_, ok = files.get("keys.json")
	s.True(ok)
}

func (s *CoordinatorTestSuite) TestSyncNow_ReportsFailures() {
	s.initialize()
	files := newFakeFiles()
	files.err = errors.New("rate limited")
	s.coord.SetMirror(files)

	report, err := s.coord.SyncNow(s.ctx)
	s.Require().NoError(err)
	s.True(report.Pushed)
	s.Require().NotEmpty(report.MirrorErrors)
	s.Contains(report.MirrorErrors[0], "rate limited")
	s.NotEmpty(report.FailedTasks)

	// local state is untouched by mirror failures
	s.Equal(1, s.remote.PutCount(docstore.CollectionUsers, syncUser))
}

func (s *CoordinatorTestSuite) TestSyncNow_PushFailure() {
	s.initialize()
	s.remote.PutError = errors.New("quota exceeded")

	report, err := s.coord.SyncNow(s.ctx)
	s.Require().Error(err)
	s.True(docstore.IsConnectionError(err))
	s.False(report.Pushed)
	s.Contains(report.PushError, "quota exceeded")
}

func (s *CoordinatorTestSuite) TestSyncNow_LocalOnly() {
	report, err := s.coord.SyncNow(s.ctx)
	s.ErrorIs(err, docstore.ErrUnavailable)
	s.False(report.CloudSyncEnabled)
}

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func TestPushGuard(t *testing.T) {
	ctx := context.Background()
	remote := memory.New()
	docs := docstore.NewClient(remote)
	repos := repository.New(mock.NewMockStore())
	coord := coordinator.New(repos, docs, nil, coordinator.Options{UserID: syncUser, ProbeInterval: 5 * time.Millisecond, ProbeAttempts: 200})
	require.NoError(t, coord.Initialize(ctx))
	t.Cleanup(func() {
		coord.Close()
		_ = docs.Close(ctx)
	})

	// a pull started from within a notification of our own push is rejected
	var pullErr error
	sub, err := docs.Subscribe(ctx, docstore.CollectionUsers, syncUser, func(snap docstore.Snapshot) {
		pullErr = coord.PullRemoteToLocal(ctx, snap.Data)
	}, nil)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, coord.PushLocalToRemote(ctx))
	assert.ErrorIs(t, pullErr, coordinator.ErrSyncInProgress)
}
