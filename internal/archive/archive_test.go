package archive

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jon4hz/loaderdesk/internal/localstore/mock"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/jon4hz/loaderdesk/internal/repository"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repos *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	project, err := repos.Projects.Add(ctx, models.Project{
		Name:      "Alpha",
		CreatedAt: created,
		Cooldown:  lo.ToPtr(30),
		Webhooks:  &models.Webhooks{Execution: "https://discord.example/exec"},
	})
	require.NoError(t, err)
	_, err = repos.Projects.AddFile(ctx, project.ID, models.File{Name: "main.lua", Content: "print('hi')\n"})
	require.NoError(t, err)

	_, err = repos.Users.Add(ctx, models.User{Days: lo.ToPtr(30), CreatedAt: created, Note: "vip"})
	require.NoError(t, err)
	_, err = repos.Users.Add(ctx, models.User{CreatedAt: created})
	require.NoError(t, err)

	_, err = repos.TriggerManualBackup(ctx)
	require.NoError(t, err)
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			ctx := context.Background()
			source := repository.New(mock.NewMockStore())
			seed(t, source)

			exported, err := Export(ctx, source)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, exported.Encode(&buf, format))

			decoded, err := Decode(&buf, format)
			require.NoError(t, err)

			target := repository.New(mock.NewMockStore())
			synced := 0
			target.OnChange(func(context.Context) { synced++ })
			require.NoError(t, Import(ctx, target, decoded))
			assert.Equal(t, 1, synced)

			wantProjects, _ := source.Projects.List(ctx)
			gotProjects, err := target.Projects.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, wantProjects, gotProjects)

			wantUsers, _ := source.Users.List(ctx)
			gotUsers, err := target.Users.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, wantUsers, gotUsers)

			wantBackups, _ := source.Backups.List(ctx)
			gotBackups, err := target.Backups.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, wantBackups, gotBackups)
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"projects": []}`), FormatJSON)
	assert.True(t, models.IsValidationError(err))

	_, err = Decode(strings.NewReader(`not json`), FormatJSON)
	assert.True(t, models.IsValidationError(err))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "JSON", want: FormatJSON},
		{in: "yml", want: FormatYAML},
		{in: "toml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	assert.Equal(t, FormatYAML, FormatFromPath("backup.YAML"))
	assert.Equal(t, FormatJSON, FormatFromPath("backup.json"))
}
