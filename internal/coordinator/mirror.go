package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/mirror"
	"github.com/jon4hz/loaderdesk/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	journalTargetDocs = "docstore"
	keysFile          = "keys.json"
	mirrorWorkers     = 4
)

// MirrorProjectFiles writes one lookup document per project that has a loader id and files.
func (c *Coordinator) MirrorProjectFiles(ctx context.Context, projects []models.Project) error {
	if !c.CloudSyncEnabled() {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var errs []error
	for _, project := range projects {
		if project.LoaderID == "" || len(project.Files) == 0 {
			continue
		}
		err := c.journal.Run(ctx, journalTargetDocs, "project", path.Join(docstore.CollectionProjects, project.LoaderID), func(ctx context.Context) error {
			doc, err := docstore.Encode(project)
			if err != nil {
				return err
			}
			doc["updatedAt"] = now
			return c.docs.Write(ctx, docstore.CollectionProjects, project.LoaderID, doc, docstore.Merge())
		})
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// MirrorUsers writes one lookup document per user key.
func (c *Coordinator) MirrorUsers(ctx context.Context, users []models.User) error {
	if !c.CloudSyncEnabled() {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var errs []error
	for _, user := range users {
		if user.Key == "" {
			continue
		}
		err := c.journal.Run(ctx, journalTargetDocs, "user", path.Join(docstore.CollectionUsers, user.Key), func(ctx context.Context) error {
			doc, err := docstore.Encode(user)
			if err != nil {
				return err
			}
			doc["updatedAt"] = now
			return c.docs.Write(ctx, docstore.CollectionUsers, user.Key, doc, docstore.Merge())
		})
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// keyEntry is the public view of a user written to keys.json.
type keyEntry struct {
	Key           string            `json:"key"`
	Status        models.UserStatus `json:"status"`
	DaysRemaining *int              `json:"daysRemaining"`
	AntiCheat     bool              `json:"antiCheat"`
	DiscordID     string            `json:"discordId,omitempty"`
}

type mirrorFile struct {
	path    string
	content []byte
}

// MirrorFiles copies every project file and the key list to the file mirror.
func (c *Coordinator) MirrorFiles(ctx context.Context, projects []models.Project, users []models.User) error {
	fs := c.fileStore()
	if fs == nil {
		return nil
	}

	var files []mirrorFile
	for _, project := range projects {
		if project.LoaderID == "" {
			continue
		}
		for _, file := range project.Files {
			files = append(files, mirrorFile{
				path:    path.Join(docstore.CollectionProjects, project.LoaderID, file.Name),
				content: []byte(file.Content),
			})
		}
	}

	entries := make([]keyEntry, 0, len(users))
	for _, user := range users {
		entries = append(entries, keyEntry{
			Key:           user.Key,
			Status:        user.Status,
			DaysRemaining: user.DaysRemaining,
			AntiCheat:     user.AntiCheat,
			DiscordID:     user.DiscordID,
		})
	}
	keys, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	files = append(files, mirrorFile{path: keysFile, content: keys})

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(mirrorWorkers)
	for _, file := range files {
		g.Go(func() error {
			err := c.journal.Run(ctx, fs.Name(), "file", file.path, func(ctx context.Context) error {
				return mirror.Upsert(ctx, fs, file.path, file.content, "Update "+file.path)
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
