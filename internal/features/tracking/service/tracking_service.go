package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resi-tracker/internal/core/cache"
	"resi-tracker/internal/core/logger"
	"resi-tracker/internal/core/metrics"
	"resi-tracker/internal/features/tracking/domain"
	"resi-tracker/internal/features/tracking/ports"
	"resi-tracker/internal/features/tracking/presenter"

	"go.uber.org/zap"
)

// Option configures a TrackingService.
type Option func(*TrackingService)

// WithCache memoises successful outcomes in c for ttl. A zero ttl disables caching.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *TrackingService) {
		if c != nil && ttl > 0 {
			s.cache = c
			s.cacheTTL = ttl
		}
	}
}

// WithMetrics records lookup counts and latency.
func WithMetrics(m *metrics.LookupMetrics) Option {
	return func(s *TrackingService) {
		s.metrics = m
	}
}

// TrackingService resolves the carrier, drives the aggregator and renders the reply.
// It holds only immutable state and is safe for concurrent use.
type TrackingService struct {
	registry *domain.Registry
	fetcher  ports.PageFetcher
	parser   ports.PageParser
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.LookupMetrics
	logger   *zap.Logger
}

// NewTrackingService creates a new TrackingService.
func NewTrackingService(registry *domain.Registry, fetcher ports.PageFetcher, parser ports.PageParser, opts ...Option) *TrackingService {
	s := &TrackingService{
		registry: registry,
		fetcher:  fetcher,
		parser:   parser,
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup tracks waybill with the named carrier.
// Unknown carriers fail with domain.ErrUnknownCarrier before any browser work; driver
// failures wrap *domain.RetrievalError. "Not found" style answers are successful calls
// with LookupResult.Success false.
func (s *TrackingService) Lookup(ctx context.Context, carrier, waybill string) (*domain.LookupResult, error) {
	start := time.Now()

	req, err := domain.NewTrackingRequest(carrier, waybill)
	if err != nil {
		s.metrics.Observe(domain.NormalizeName(carrier), metrics.ResultBadInput, time.Since(start))
		return nil, err
	}

	exp, ok := s.registry.Resolve(req.Carrier)
	if !ok {
		s.metrics.Observe("", metrics.ResultUnknown, time.Since(start))
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCarrier, req.Carrier)
	}
	label := domain.NormalizeName(exp.Name)

	if outcome, ok := s.cached(ctx, label, req.Waybill); ok {
		s.metrics.Observe(label, metrics.ResultCacheHit, time.Since(start))
		return newResult(outcome), nil
	}

	done := s.metrics.Track()
	markup, err := s.fetcher.FetchTrackingPage(ctx, req.Waybill, exp.Trigger)
	done()
	if err != nil {
		s.metrics.Observe(label, metrics.ResultError, time.Since(start))
		return nil, fmt.Errorf("failed to fetch tracking page: %w", err)
	}

	outcome := s.parser.Parse(markup)

	result := metrics.ResultFailure
	if outcome.Success {
		result = metrics.ResultSuccess
		s.store(ctx, label, req.Waybill, outcome)
	}
	s.metrics.Observe(label, result, time.Since(start))

	s.logger.Info("Tracking lookup finished",
		zap.String("carrier", exp.Name),
		zap.String("waybill", req.Waybill),
		zap.Bool("success", outcome.Success),
		zap.Int("rows", len(outcome.History)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return newResult(outcome), nil
}

// IsKnown reports whether the carrier is supported.
func (s *TrackingService) IsKnown(carrier string) bool {
	return s.registry.IsKnown(carrier)
}

// Expeditions returns the supported carrier names in registration order.
func (s *TrackingService) Expeditions() []string {
	return s.registry.Names()
}

func newResult(outcome domain.Outcome) *domain.LookupResult {
	return &domain.LookupResult{
		Success: outcome.Success,
		Text:    presenter.Format(outcome),
		Outcome: outcome,
	}
}

func cacheKey(carrier, waybill string) string {
	return "lookup:" + carrier + ":" + waybill
}

// cached returns a memoised outcome. Cache errors are logged and treated as misses;
// entries that do not decode to a successful outcome are evicted.
func (s *TrackingService) cached(ctx context.Context, carrier, waybill string) (domain.Outcome, bool) {
	if s.cache == nil {
		return domain.Outcome{}, false
	}

	data, err := s.cache.Get(ctx, cacheKey(carrier, waybill))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.Warn("Cache read failed", zap.Error(err))
		}
		return domain.Outcome{}, false
	}

	var outcome domain.Outcome
	if err := json.Unmarshal(data, &outcome); err != nil || !outcome.Success {
		s.logger.Warn("Evicting unreadable cache entry", zap.String("carrier", carrier), zap.Error(err))
		if err := s.cache.Delete(ctx, cacheKey(carrier, waybill)); err != nil {
			s.logger.Warn("Cache delete failed", zap.Error(err))
		}
		return domain.Outcome{}, false
	}
	return outcome, true
}

func (s *TrackingService) store(ctx context.Context, carrier, waybill string, outcome domain.Outcome) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		s.logger.Warn("Failed to encode outcome for cache", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, cacheKey(carrier, waybill), data, s.cacheTTL); err != nil {
		s.logger.Warn("Cache write failed", zap.Error(err))
	}
}
