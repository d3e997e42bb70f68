package resilience

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Health labels reported in the aggregate summary.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// RegistryConfig holds configuration for a breaker registry.
type RegistryConfig struct {
	// Services enumerates per-service breaker tuning. Breakers for names not
	// listed here are created from Defaults.
	Services []Config

	// Defaults applies to breakers created for unconfigured service names.
	Defaults Config

	// Logger records state transitions.
	Logger zerolog.Logger

	// OnStateChange, if set, is invoked after logging on every transition
	// (e.g. to record metrics).
	OnStateChange func(name string, from, to gobreaker.State)
}

// Registry is the process-wide map from service name to breaker. Breakers
// are created lazily on first use and live for the process lifetime.
type Registry struct {
	cfg     RegistryConfig
	configs map[string]Config

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry with the given per-service tuning.
func NewRegistry(cfg RegistryConfig) *Registry {
	configs := make(map[string]Config, len(cfg.Services))
	for _, sc := range cfg.Services {
		configs[sc.Name] = sc
	}

	return &Registry{
		cfg:      cfg,
		configs:  configs,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for name, creating it on first use. Concurrent
// first access for the same name yields a single shared instance.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}

	bc, ok := r.configs[name]
	if !ok {
		bc = r.cfg.Defaults
	}
	bc.Name = name
	bc.OnStateChange = r.stateChange
	b = New(bc)
	r.breakers[name] = b
	return b
}

func (r *Registry) stateChange(name string, from, to gobreaker.State) {
	r.cfg.Logger.Warn().
		Str("service", name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("circuit breaker state changed")

	if r.cfg.OnStateChange != nil {
		r.cfg.OnStateChange(name, from, to)
	}
}

// Names returns the names of all known breakers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of known breakers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.breakers)
}

// Reset force-closes the named breaker with a cleared failure count.
// Returns false if no breaker exists for name.
func (r *Registry) Reset(name string) bool {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	b.Reset()
	return true
}

// ResetAll force-closes every known breaker.
func (r *Registry) ResetAll() {
	for _, b := range r.snapshot() {
		b.Reset()
	}
}

// BreakerStatus is the reported status of a single breaker.
type BreakerStatus struct {
	State            string `json:"state"`
	IsHealthy        bool   `json:"isHealthy"`
	Failures         uint32 `json:"failures"`
	FailureThreshold uint32 `json:"failureThreshold"`
	Stats            Stats  `json:"stats"`
}

// Aggregate summarizes breaker health across all services. Healthy counts
// closed breakers, degraded half-open, failed open.
type Aggregate struct {
	Total         int    `json:"total"`
	Healthy       int    `json:"healthy"`
	Degraded      int    `json:"degraded"`
	Failed        int    `json:"failed"`
	OverallHealth string `json:"overallHealth"`
}

// Summary is the full health report for every known breaker.
type Summary struct {
	Summary Aggregate                `json:"summary"`
	Details map[string]BreakerStatus `json:"details"`
}

// Summary reports the state, failure counts, and call stats of every known
// breaker plus an aggregate health rollup.
func (r *Registry) Summary() Summary {
	breakers := r.snapshot()

	agg := Aggregate{Total: len(breakers)}
	details := make(map[string]BreakerStatus, len(breakers))

	for _, b := range breakers {
		state := b.State()
		switch state {
		case gobreaker.StateClosed:
			agg.Healthy++
		case gobreaker.StateHalfOpen:
			agg.Degraded++
		case gobreaker.StateOpen:
			agg.Failed++
		}

		details[b.Name()] = BreakerStatus{
			State:            state.String(),
			IsHealthy:        state == gobreaker.StateClosed,
			Failures:         b.Failures(),
			FailureThreshold: b.Threshold(),
			Stats:            b.Stats(),
		}
	}

	agg.OverallHealth = overallHealth(agg)
	return Summary{Summary: agg, Details: details}
}

func overallHealth(a Aggregate) string {
	switch {
	case a.Failed == 0 && a.Degraded == 0:
		return HealthHealthy
	case a.Healthy > 0 || a.Degraded > 0:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}

func (r *Registry) snapshot() []*Breaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	return breakers
}
