package profile

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jon4hz/loaderdesk/internal/config"
	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/samber/lo"
)

const (
	profileID   = "default"
	analyticsID = "profile"
	dayLayout   = "2006-01-02"
)

// Service manages the public profile page stored in the remote document store.
type Service struct {
	docs     *docstore.Client
	defaults config.ProfileConfig
	now      func() time.Time

	// serializes the read-modify-write cycles of this process
	mu sync.Mutex
}

// New creates a new profile Service. docs may be nil, every call then fails with ErrUnavailable.
func New(docs *docstore.Client, cfg *config.ProfileConfig) *Service {
	s := &Service{
		docs: docs,
		now:  time.Now,
	}
	if cfg != nil {
		s.defaults = *cfg
	}
	return s
}

func (s *Service) available() error {
	if s.docs == nil || !s.docs.Available() {
		return docstore.ErrUnavailable
	}
	return nil
}

func (s *Service) read(ctx context.Context) (*models.Profile, error) {
	snap, err := s.docs.Read(ctx, docstore.CollectionProfiles, profileID)
	if err != nil {
		return nil, err
	}
	profile := &models.Profile{}
	if snap.Exists {
		if err := docstore.Decode(snap.Data, profile); err != nil {
			return nil, err
		}
	}
	if profile.Username == "" {
		profile.Username = s.defaults.DefaultUsername
	}
	if profile.Bio == "" {
		profile.Bio = s.defaults.DefaultBio
	}
	if profile.Location == "" {
		profile.Location = s.defaults.DefaultLocation
	}
	if profile.SocialLinks == nil {
		profile.SocialLinks = []models.SocialLink{}
	}

	analytics, _, err := s.readAnalytics(ctx)
	if err != nil {
		return nil, err
	}
	profile.Views = analytics.stats(s.now())
	return profile, nil
}

func (s *Service) write(ctx context.Context, collection, id string, fields docstore.Document) error {
	fields["updatedAt"] = s.now().UTC().Format(time.RFC3339Nano)
	return s.docs.Write(ctx, collection, id, fields, docstore.Merge())
}

// Load returns the profile. Missing fields are filled with the configured defaults.
func (s *Service) Load(ctx context.Context) (*models.Profile, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	return s.read(ctx)
}

// SaveInfo updates username, bio and location.
func (s *Service) SaveInfo(ctx context.Context, username, bio, location string) (*models.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("username", "please enter a username")
	}
	if err := s.available(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.write(ctx, docstore.CollectionProfiles, profileID, docstore.Document{
		"username": username,
		"bio":      strings.TrimSpace(bio),
		"location": strings.TrimSpace(location),
	})
	if err != nil {
		return nil, err
	}
	return s.read(ctx)
}

// AddSocialLink appends a link to the profile.
func (s *Service) AddSocialLink(ctx context.Context, link models.SocialLink) (*models.Profile, error) {
	link.Platform = strings.TrimSpace(link.Platform)
	link.URL = strings.TrimSpace(link.URL)
	if link.Platform == "" || link.URL == "" {
		return nil, models.NewValidationError("socialLink", "platform and url are required")
	}
	if err := s.available(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	profile, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return s.saveLinks(ctx, append(profile.SocialLinks, link))
}

// DeleteSocialLink removes the link at index.
func (s *Service) DeleteSocialLink(ctx context.Context, index int) (*models.Profile, error) {
	if err := s.available(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	profile, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(profile.SocialLinks) {
		return nil, models.ErrNotFound
	}
	links := append(profile.SocialLinks[:index], profile.SocialLinks[index+1:]...)
	return s.saveLinks(ctx, links)
}

func (s *Service) saveLinks(ctx context.Context, links []models.SocialLink) (*models.Profile, error) {
	encoded, err := docstore.Encode(struct {
		SocialLinks []models.SocialLink `json:"socialLinks"`
	}{SocialLinks: lo.Ternary(links == nil, []models.SocialLink{}, links)})
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, docstore.CollectionProfiles, profileID, encoded); err != nil {
		return nil, err
	}
	return s.read(ctx)
}
