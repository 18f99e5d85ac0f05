package coordinator

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/samber/lo"
)

// Views are the derived counters shown by the dashboard.
type Views struct {
	TotalUsers            int        `json:"totalUsers"`
	ActiveUsers           int        `json:"activeUsers"`
	BannedUsers           int        `json:"bannedUsers"`
	ExpiredUsers          int        `json:"expiredUsers"`
	Projects              int        `json:"projects"`
	Files                 int        `json:"files"`
	Backups               int        `json:"backups"`
	ProjectSectionVisible bool       `json:"projectSectionVisible"`
	CloudSyncEnabled      bool       `json:"cloudSyncEnabled"`
	SyncInProgress        bool       `json:"syncInProgress"`
	LastSync              *time.Time `json:"lastSync"`
}

// Views computes the current views from the local store.
func (c *Coordinator) Views(ctx context.Context) (Views, error) {
	projects, err := c.repos.Projects.List(ctx)
	if err != nil {
		return Views{}, err
	}
	users, err := c.repos.Users.List(ctx)
	if err != nil {
		return Views{}, err
	}
	backups, err := c.repos.Backups.List(ctx)
	if err != nil {
		return Views{}, err
	}

	countStatus := func(status models.UserStatus) int {
		return lo.CountBy(users, func(u models.User) bool { return u.Status == status })
	}

	return Views{
		TotalUsers:            len(users),
		ActiveUsers:           countStatus(models.UserStatusActive),
		BannedUsers:           countStatus(models.UserStatusBanned),
		ExpiredUsers:          countStatus(models.UserStatusExpired),
		Projects:              len(projects),
		Files:                 lo.SumBy(projects, func(p models.Project) int { return len(p.Files) }),
		Backups:               len(backups),
		ProjectSectionVisible: len(projects) > 0,
		CloudSyncEnabled:      c.CloudSyncEnabled(),
		SyncInProgress:        c.SyncInProgress(),
		LastSync:              c.LastSync(),
	}, nil
}

func (c *Coordinator) refresh(ctx context.Context) {
	c.mu.RLock()
	listeners := slices.Clone(c.listeners)
	c.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	views, err := c.Views(ctx)
	if err != nil {
		log.Error("Failed to compute views", "error", err)
		return
	}
	for _, fn := range listeners {
		fn(views)
	}
}
