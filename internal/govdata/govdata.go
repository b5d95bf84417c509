// Package govdata proxies UK government open-data APIs and caches their
// normalised responses.
package govdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vbonduro/propertypassport/internal/apicache"
	"github.com/vbonduro/propertypassport/internal/domain"
)

const (
	DefaultEPCBaseURL          = "https://epc.opendatacommunities.org/api/v1"
	DefaultLandRegistryBaseURL = "https://landregistry.data.gov.uk"
	DefaultFloodBaseURL        = "https://environment.data.gov.uk/flood-monitoring"
	DefaultPoliceBaseURL       = "https://data.police.uk/api"
)

// maxUpstreamBody bounds how much of an upstream response is read.
const maxUpstreamBody = 10 << 20

type Config struct {
	EPCBaseURL          string
	EPCEmail            string
	EPCKey              string
	LandRegistryBaseURL string
	FloodBaseURL        string
	PoliceBaseURL       string
	Timeout             time.Duration
}

// Observer receives cache and upstream measurements.
type Observer interface {
	CacheResult(provider, result string)
	UpstreamDone(provider string, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) CacheResult(string, string) {}
func (nopObserver) UpstreamDone(string, time.Duration, error) {}

// Result is the payload of a successful lookup.
type Result struct {
	Data   json.RawMessage
	Cached bool
}

type Service struct {
	cfg      Config
	cache    apicache.Cache
	client   *http.Client
	observer Observer
	group    singleflight.Group
}

func NewService(cfg Config, cache apicache.Cache, observer Observer) *Service {
	if cfg.EPCBaseURL == "" {
		cfg.EPCBaseURL = DefaultEPCBaseURL
	}
	if cfg.LandRegistryBaseURL == "" {
		cfg.LandRegistryBaseURL = DefaultLandRegistryBaseURL
	}
	if cfg.FloodBaseURL == "" {
		cfg.FloodBaseURL = DefaultFloodBaseURL
	}
	if cfg.PoliceBaseURL == "" {
		cfg.PoliceBaseURL = DefaultPoliceBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		cfg:      cfg,
		cache:    cache,
		client:   &http.Client{Timeout: cfg.Timeout},
		observer: observer,
	}
}

type fetchFunc func(ctx context.Context) (json.RawMessage, error)

// lookup serves key from the cache or fetches it once for all concurrent
// callers. Cache failures never fail the lookup.
func (s *Service) lookup(ctx context.Context, provider, key string, ttl time.Duration, fetch fetchFunc) (*Result, error) {
	data, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.observer.CacheResult(provider, "error")
		slog.Warn("govdata cache read failed", "provider", provider, "key", key, "error", err)
	case ok:
		s.observer.CacheResult(provider, "hit")
		return &Result{Data: data, Cached: true}, nil
	default:
		s.observer.CacheResult(provider, "miss")
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Detached so one caller going away does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()

		start := time.Now()
		fresh, err := fetch(fetchCtx)
		s.observer.UpstreamDone(provider, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(fetchCtx, key, provider, fresh, ttl); err != nil {
			slog.Error("govdata cache write failed", "provider", provider, "key", key, "error", err)
		}
		return fresh, nil
	})
	if err != nil {
		slog.Error("govdata upstream failed", "provider", provider, "error", err)
		return nil, err
	}
	return &Result{Data: v.(json.RawMessage), Cached: false}, nil
}

// getJSON performs a GET and returns the body of a 2xx response. Every
// failure wraps domain.ErrUpstream.
func (s *Service) getJSON(ctx context.Context, provider, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to create request: %v", domain.ErrUpstream, provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrUpstream, provider, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close upstream response body", "provider", provider, "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read response: %v", domain.ErrUpstream, provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrUpstream, provider, resp.StatusCode)
	}
	return body, nil
}

func marshal(provider string, v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to encode response: %v", domain.ErrUpstream, provider, err)
	}
	return data, nil
}
