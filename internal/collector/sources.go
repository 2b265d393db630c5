package collector

import (
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"SmartPortfolio/internal/config"
)

// NewSource builds a provider and its call policy from configuration.
func NewSource(pc config.ProviderConfig, proxy string) (Source, error) {
	var p Provider
	switch pc.Name {
	case config.ProviderFMP:
		p = NewFMP(pc.BaseURL, pc.APIKey, pc.Timeout, proxy)
	case config.ProviderEODHD:
		p = NewEODHD(pc.BaseURL, pc.APIKey, pc.Timeout, proxy)
	case config.ProviderYahoo:
		p = NewYahoo()
	case config.ProviderMock:
		p = NewMockProvider(DemoRecords()...)
	default:
		return Source{}, fmt.Errorf("unknown provider %q", pc.Name)
	}

	src := Source{Provider: p, Retries: pc.Retries, Timeout: pc.Timeout}
	if pc.RateLimit > 0 {
		burst := int(math.Max(1, math.Ceil(pc.RateLimit)))
		src.Limiter = rate.NewLimiter(rate.Limit(pc.RateLimit), burst)
	}
	return src, nil
}

// NewSources builds the whole fallback chain in configured order.
func NewSources(cfg *config.Config) ([]Source, error) {
	sources := make([]Source, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		src, err := NewSource(pc, cfg.Proxy)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
