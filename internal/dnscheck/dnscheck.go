// Package dnscheck probes DNS resolution for a set of watched domains. The
// home network has had flaky resolver issues, so the dashboard surfaces DNS
// health next to the cloud integrations.
package dnscheck

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/familyhub/familyhub/internal/resilience"
)

// BreakerName guards the resolver sweep.
const BreakerName = "dns-resolver"

// Result is the probe outcome for a single domain.
type Result struct {
	Domain    string        `json:"domain"`
	Resolved  bool          `json:"resolved"`
	Addresses []string      `json:"addresses,omitempty"`
	Duration  time.Duration `json:"durationMs"`
	Error     string        `json:"error,omitempty"`
}

// Report is one full sweep over the watched domains.
type Report struct {
	Results   []Result  `json:"results"`
	Healthy   int       `json:"healthy"`
	Failed    int       `json:"failed"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Resolver abstracts name resolution for testing.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ServiceConfig holds configuration for the DNS check service.
type ServiceConfig struct {
	// Domains are probed on every sweep.
	Domains []string

	// Resolver performs the lookups (optional, defaults to net.DefaultResolver).
	Resolver Resolver

	// LookupTimeout bounds each individual lookup (default: 3 seconds).
	LookupTimeout time.Duration

	// Breakers guards the sweep.
	Breakers *resilience.Registry

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service runs breaker-guarded DNS sweeps. One sweep is one breaker call:
// individual domains may fail without tripping anything, the attempt only
// counts as a failure when every watched domain fails to resolve.
type Service struct {
	domains       []string
	resolver      Resolver
	lookupTimeout time.Duration
	breakers      *resilience.Registry
	logger        zerolog.Logger
}

// NewService creates a new DNS check service.
func NewService(cfg ServiceConfig) *Service {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout == 0 {
		lookupTimeout = 3 * time.Second
	}

	return &Service{
		domains:       cfg.Domains,
		resolver:      resolver,
		lookupTimeout: lookupTimeout,
		breakers:      cfg.Breakers,
		logger:        cfg.Logger,
	}
}

// Check sweeps all watched domains through the breaker. A degraded result
// carries an empty report with the sweep timestamp.
func (s *Service) Check(ctx context.Context) (Report, bool, error) {
	report, degraded, err := resilience.Execute(ctx, s.breakers.Get(BreakerName),
		s.sweep,
		func() Report {
			return Report{Results: []Result{}, CheckedAt: time.Now()}
		},
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("service", BreakerName).Msg("DNS sweep degraded")
	}
	return report, degraded, err
}

// sweep probes every domain concurrently and fails only on a full wipeout.
func (s *Service) sweep(ctx context.Context) (Report, error) {
	results := make([]Result, len(s.domains))

	var wg sync.WaitGroup
	for i, domain := range s.domains {
		wg.Add(1)
		go func(i int, domain string) {
			defer wg.Done()
			results[i] = s.probe(ctx, domain)
		}(i, domain)
	}
	wg.Wait()

	report := Report{Results: results, CheckedAt: time.Now()}
	for _, r := range results {
		if r.Resolved {
			report.Healthy++
		} else {
			report.Failed++
		}
	}

	if len(results) > 0 && report.Healthy == 0 {
		return report, fmt.Errorf("all %d watched domains failed to resolve", len(results))
	}
	return report, nil
}

func (s *Service) probe(ctx context.Context, domain string) Result {
	lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	start := time.Now()
	addrs, err := s.resolver.LookupHost(lctx, domain)
	result := Result{
		Domain:   domain,
		Duration: time.Since(start),
	}

	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Resolved = true
	result.Addresses = addrs
	return result
}
