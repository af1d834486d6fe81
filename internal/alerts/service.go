package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/allotments-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/allotments-backend/pkg/errors"
	"github.com/angelmondragon/allotments-backend/pkg/logger"
	"github.com/angelmondragon/allotments-backend/pkg/metrics"
)

// Cache is the slice of the redis client the alert projection needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

type candidateSource interface {
	Candidates(ctx context.Context, from, until time.Time) ([]Candidate, error)
}

type cachedCandidates struct {
	From       time.Time   `json:"from"`
	Until      time.Time   `json:"until"`
	Candidates []Candidate `json:"candidates"`
}

type ServiceParams struct {
	Repo     candidateSource
	Cache    Cache
	CacheTTL time.Duration
	Windows  Windows
	Logger   *logger.Logger
	Metrics  *metrics.AlertMetrics
}

// Service serves the due-date alert list.
type Service struct {
	repo    candidateSource
	cache   Cache
	ttl     time.Duration
	windows Windows
	logg    *logger.Logger
	metrics *metrics.AlertMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:    params.Repo,
		cache:   params.Cache,
		ttl:     params.CacheTTL,
		windows: params.Windows,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns the alerts matching filter. Candidates may come from a cache
// that is up to one TTL old; windows and severities are computed per call.
func (s *Service) List(ctx context.Context, filter Filter) ([]Alert, error) {
	now := s.now()
	candidates, err := s.candidates(ctx, now)
	if err != nil {
		return nil, err
	}
	return Build(now, candidates, filter, s.windows), nil
}

// Refresh reloads candidates into the cache and publishes the per-severity
// counts of the unfiltered list.
func (s *Service) Refresh(ctx context.Context) (map[string]int, error) {
	now := s.now()
	candidates, err := s.load(ctx, now)
	if err != nil {
		return nil, err
	}
	counts := CountBySeverity(Build(now, candidates, Filter{}, s.windows))
	s.metrics.SetDue(counts, string(enums.AlertSeverityDanger), string(enums.AlertSeverityWarning))
	return counts, nil
}

func (s *Service) cacheKey() string {
	return s.cache.CacheKey("alerts", "candidates")
}

func (s *Service) candidates(ctx context.Context, now time.Time) ([]Candidate, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, s.cacheKey())
		if err == nil {
			var cached cachedCandidates
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil && covers(cached, now, s.windows) {
				return cached.Candidates, nil
			}
		}
	}
	return s.load(ctx, now)
}

// covers reports whether a cached load still spans today's whole window.
func covers(cached cachedCandidates, now time.Time, windows Windows) bool {
	return !cached.From.After(StartOfDay(now)) && !cached.Until.Before(now.Add(windows.Horizon()))
}

func (s *Service) load(ctx context.Context, now time.Time) ([]Candidate, error) {
	from := StartOfDay(now)
	// pad the horizon so a cached load stays usable for its whole TTL
	until := now.Add(s.windows.Horizon() + s.ttl)
	candidates, err := s.repo.Candidates(ctx, from, until)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alert candidates")
	}
	if s.cache != nil && s.ttl > 0 {
		payload, err := json.Marshal(cachedCandidates{From: from, Until: until, Candidates: candidates})
		if err == nil {
			err = s.cache.Set(ctx, s.cacheKey(), payload, s.ttl)
		}
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "alert cache write failed")
		}
	}
	return candidates, nil
}
