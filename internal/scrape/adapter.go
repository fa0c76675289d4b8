// Package scrape resolves configured sources to fetch adapters. Each
// adapter is a thin, swappable client for one careers-site flavor; all of
// the shared logic (normalization, reconciliation, scoring) lives upstream.
package scrape

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jobmatch-engine/internal/config"
	"jobmatch-engine/internal/domain"
	"jobmatch-engine/internal/scrape/greenhouse"
	"jobmatch-engine/internal/scrape/jsonfeed"
	"jobmatch-engine/internal/scrape/lever"
	"jobmatch-engine/internal/scrape/util"
)

// Adapter fetches the current set of raw postings for one source.
//
// Contract: return an error when the listing set could not be determined
// (network failure, bad status, undecodable body). An empty slice with a
// nil error is a statement that the board is empty, and the reconciler
// will deactivate every posting of the source accordingly.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.RawPosting, error)
}

type factory func(src config.Source, limiter *util.HostLimiter) Adapter

var registry = map[string]factory{
	"jsonfeed": func(src config.Source, limiter *util.HostLimiter) Adapter {
		return jsonfeed.New(src.Name, src.Endpoint, limiter)
	},
	"greenhouse": func(src config.Source, limiter *util.HostLimiter) Adapter {
		return greenhouse.New(src.Name, src.Endpoint, limiter)
	},
	"lever": func(src config.Source, limiter *util.HostLimiter) Adapter {
		return lever.New(src.Name, src.Endpoint, limiter)
	},
}

func init() {
	config.KnownAdapters = AdapterNames
}

// NewAdapter resolves a source's strategy name. Unknown names are a
// configuration error; there is no runtime fallback.
func NewAdapter(src config.Source, limiter *util.HostLimiter) (Adapter, error) {
	f, ok := registry[src.Adapter]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q for source %q (available: %s)",
			src.Adapter, src.Name, strings.Join(AdapterNames(), ", "))
	}
	return f(src, limiter), nil
}

func AdapterNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
