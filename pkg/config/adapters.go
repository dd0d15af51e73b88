package config

import (
	"fmt"

	"github.com/marmos91/vfinder/internal/action"
	"github.com/marmos91/vfinder/pkg/adapter"
	"github.com/marmos91/vfinder/pkg/adapter/httpapi"
	"github.com/marmos91/vfinder/pkg/adapter/lambda"
	"github.com/marmos91/vfinder/pkg/metrics"
	"github.com/marmos91/vfinder/pkg/registry"
	"github.com/marmos91/vfinder/pkg/urlresolver"
)

// CreateAdapters creates all enabled transport adapters from the configuration.
//
// Parameters:
//   - cfg: The complete vfinder configuration
//   - m: Optional action metrics collector (nil = no metrics)
//
// Returns:
//   - []adapter.Adapter: List of enabled adapters ready to be added to the server
//   - error: Any error during adapter creation
func CreateAdapters(cfg *Config, m metrics.ActionMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.HTTP.Enabled {
		httpAdapter, err := httpapi.New(cfg.Adapters.HTTP, m)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, httpAdapter)
	}

	if cfg.Adapters.Lambda.Enabled {
		lambdaAdapter, err := lambda.New(cfg.Adapters.Lambda, m)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, lambdaAdapter)
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}

// CreateHandler builds the action handler and its URL resolver on top of
// an initialized registry.
func CreateHandler(cfg *Config, reg *registry.Registry) (*action.Handler, error) {
	links := make([]urlresolver.PublicLink, 0, len(cfg.PublicLinks))
	for _, l := range cfg.PublicLinks {
		links = append(links, urlresolver.PublicLink{Prefix: l.Prefix, URL: l.URL})
	}

	urls := urlresolver.New(urlresolver.Config{
		AppURL:           cfg.AppURL,
		PublicLinks:      links,
		PublicExclusions: cfg.PublicExclusions,
	}, reg)

	h, err := action.NewHandler(reg, urls, action.Config{
		TempDir:        cfg.Action.TempDir,
		ThumbnailWidth: cfg.Action.ThumbnailWidth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create action handler: %w", err)
	}
	return h, nil
}
