// Package urlresolver decides which files get a public URL and computes it.
//
// Resolution order, first hit wins:
//  1. public_links: a path prefix mapped to a base URL, matched
//     case-insensitively in configured order
//  2. the storage's public_base_url
//  3. the application URL followed by the storage's public prefix
//     (default "storage/<key>")
package urlresolver

import (
	"context"
	"strings"

	"github.com/marmos91/vfinder/pkg/registry"
	"github.com/marmos91/vfinder/pkg/storagepath"
)

// PublicLink maps a storage path prefix to a public base URL.
type PublicLink struct {
	Prefix string
	URL    string
}

// Config holds the global URL settings.
type Config struct {
	// AppURL is the externally reachable base URL of the application.
	// When empty the request's own scheme and host are used.
	AppURL string

	// PublicLinks are checked in order before any per-storage setting
	PublicLinks []PublicLink

	// PublicExclusions are path prefixes that never get a URL
	PublicExclusions []string
}

// Resolver implements URL resolution over the registered storages.
type Resolver struct {
	cfg Config
	reg *registry.Registry
}

// New creates a resolver.
func New(cfg Config, reg *registry.Registry) *Resolver {
	return &Resolver{cfg: cfg, reg: reg}
}

type requestBaseKey struct{}

// WithRequestBase stores the scheme and host of the current request
// ("https://files.example.com"), the last fallback for the application URL.
func WithRequestBase(ctx context.Context, base string) context.Context {
	return context.WithValue(ctx, requestBaseKey{}, base)
}

func requestBase(ctx context.Context) string {
	if base, ok := ctx.Value(requestBaseKey{}).(string); ok && base != "" {
		return base
	}
	return "http://localhost"
}

// ResolveURL returns the public URL of p, or "" when none applies.
func (r *Resolver) ResolveURL(ctx context.Context, p string) string {
	for _, link := range r.cfg.PublicLinks {
		if hasPrefixFold(p, link.Prefix) {
			return link.URL + p[len(link.Prefix):]
		}
	}

	key, rel, ok := storagepath.Split(p)
	if !ok {
		return ""
	}
	rel = strings.TrimLeft(rel, "/")

	var opts registry.Options
	if s, err := r.reg.Storage(key); err == nil {
		opts = s.Options
	}

	if opts.PublicBaseURL != "" {
		return strings.TrimRight(opts.PublicBaseURL, "/") + "/" + rel
	}

	base := r.cfg.AppURL
	if base == "" {
		base = requestBase(ctx)
	}

	prefix := opts.PublicPrefix
	if prefix == "" {
		prefix = "storage/" + key
	}

	return strings.TrimRight(base, "/") + "/" + strings.Trim(prefix, "/") + "/" + rel
}

// ShouldHavePublicURL reports whether p is eligible for a public URL.
func (r *Resolver) ShouldHavePublicURL(p string) bool {
	for _, exclusion := range r.cfg.PublicExclusions {
		if strings.HasPrefix(p, exclusion) {
			return false
		}
	}

	if key, _, ok := storagepath.Split(p); ok {
		if s, err := r.reg.Storage(key); err == nil && s.Options.Public != nil && !*s.Options.Public {
			return false
		}
	}

	return len(r.cfg.PublicLinks) > 0 || r.reg.Count() > 0
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
