package profile

import (
	"context"
	"time"

	"github.com/jon4hz/loaderdesk/internal/docstore"
	"github.com/jon4hz/loaderdesk/internal/models"
	"github.com/samber/lo"
)

// analyticsDocument is the stored form of the view counters.
// Day is the UTC date the today counter belongs to.
type analyticsDocument struct {
	Total    int        `json:"total"`
	Today    int        `json:"today"`
	LastView *time.Time `json:"lastView"`
	Day      string     `json:"day,omitempty"`
}

func (d analyticsDocument) stats(now time.Time) models.ViewStats {
	today := d.Today
	if d.Day != "" && d.Day != now.UTC().Format(dayLayout) {
		today = 0
	}
	return models.ViewStats{Total: d.Total, Today: today, LastView: d.LastView}
}

func (s *Service) readAnalytics(ctx context.Context) (analyticsDocument, bool, error) {
	var doc analyticsDocument
	snap, err := s.docs.Read(ctx, docstore.CollectionAnalytics, analyticsID)
	if err != nil {
		return doc, false, err
	}
	if !snap.Exists {
		return doc, false, nil
	}
	if err := docstore.Decode(snap.Data, &doc); err != nil {
		return doc, false, err
	}
	return doc, true, nil
}

// Analytics returns the view counters, initializing them when missing.
func (s *Service) Analytics(ctx context.Context) (models.ViewStats, error) {
	if err := s.available(); err != nil {
		return models.ViewStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, exists, err := s.readAnalytics(ctx)
	if err != nil {
		return models.ViewStats{}, err
	}
	if !exists {
		encoded, err := docstore.Encode(doc)
		if err != nil {
			return models.ViewStats{}, err
		}
		encoded["updatedAt"] = s.now().UTC().Format(time.RFC3339Nano)
		if err := s.docs.Write(ctx, docstore.CollectionAnalytics, analyticsID, encoded); err != nil {
			return models.ViewStats{}, err
		}
	}
	return doc.stats(s.now()), nil
}

// RecordView counts one profile page view.
func (s *Service) RecordView(ctx context.Context) (models.ViewStats, error) {
	if err := s.available(); err != nil {
		return models.ViewStats{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, _, err := s.readAnalytics(ctx)
	if err != nil {
		return models.ViewStats{}, err
	}

	now := s.now()
	day := now.UTC().Format(dayLayout)
	if doc.Day != day {
		doc.Today = 0
		doc.Day = day
	}
	doc.Total++
	doc.Today++
	doc.LastView = lo.ToPtr(now.UTC())

	encoded, err := docstore.Encode(doc)
	if err != nil {
		return models.ViewStats{}, err
	}
	if err := s.write(ctx, docstore.CollectionAnalytics, analyticsID, encoded); err != nil {
		return models.ViewStats{}, err
	}
	return doc.stats(now), nil
}

// ResetDailyViews sets the today counter back to zero.
func (s *Service) ResetDailyViews(ctx context.Context) error {
	if err := s.available(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	encoded, err := docstore.Encode(struct {
		Today int    `json:"today"`
		Day   string `json:"day"`
	}{Today: 0, Day: s.now().UTC().Format(dayLayout)})
	if err != nil {
		return err
	}
	return s.write(ctx, docstore.CollectionAnalytics, analyticsID, encoded)
}
