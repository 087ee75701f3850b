package platform

import (
	"errors"
	"fmt"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"golang.org/x/time/rate"
)

// ErrUnsupported is returned when no adapter is registered for a platform.
var ErrUnsupported = errors.New("platform not supported")

// ErrMediaUnavailable marks a media fetch that failed for a reason worth
// retrying later, such as a network error or a 5xx from the file host.
var ErrMediaUnavailable = errors.New("media temporarily unavailable")

type Constructor func(cfg config.PlatformConfig, cred Credential, deps Deps) (Adapter, error)

type registration struct {
	cfg     config.PlatformConfig
	build   Constructor
	limiter *rate.Limiter
}

// Registry maps each enabled platform to its adapter constructor.
type Registry struct {
	deps    Deps
	entries map[Platform]registration
}

// NewRegistry registers the built in adapter of every platform that is
// present and enabled in platforms.
func NewRegistry(platforms config.Platforms, deps Deps) *Registry {
	r := &Registry{deps: deps, entries: make(map[Platform]registration)}
	for _, p := range All {
		pc, ok := platforms[string(p)]
		if !ok || !pc.Enabled {
			continue
		}
		r.Register(p, pc, builtin(p))
	}
	return r
}

func builtin(p Platform) Constructor {
	switch p {
	case Facebook:
		return NewFacebook
	case Twitter:
		return NewTwitter
	case LinkedIn:
		return NewLinkedIn
	case Instagram:
		return NewInstagram
	}
	panic(fmt.Sprintf("platform %q has no adapter", p))
}

// Register installs or replaces the constructor for p.
func (r *Registry) Register(p Platform, cfg config.PlatformConfig, build Constructor) {
	r.entries[p] = registration{cfg: cfg, build: build, limiter: newLimiter(cfg)}
}

// newLimiter spreads rate_limit requests evenly over rate_limit_window and
// allows bursts of the whole budget. Without both settings there is no limit.
func newLimiter(cfg config.PlatformConfig) *rate.Limiter {
	if cfg.RateLimit <= 0 || cfg.RateLimitWindow <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(cfg.RateLimitWindow/time.Duration(cfg.RateLimit)), cfg.RateLimit)
}

func (r *Registry) Supports(p Platform) bool {
	_, ok := r.entries[p]
	return ok
}

// Adapter builds an adapter for p bound to cred.
func (r *Registry) Adapter(p Platform, cred Credential) (Adapter, error) {
	reg, ok := r.entries[p]
	if !ok {
		return nil, ErrUnsupported
	}
	deps := r.deps
	deps.Limiter = reg.limiter
	a, err := reg.build(reg.cfg, cred, deps)
	if err != nil {
		return nil, fmt.Errorf("build %s adapter: %w", p, err)
	}
	return a, nil
}
