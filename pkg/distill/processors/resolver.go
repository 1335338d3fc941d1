package processors

import (
	"context"
	"strings"
)

// URLResolver turns a stored file uri (public://images/a.png) into a URL
type URLResolver interface {
	ResolveURL(ctx context.Context, uri string) (string, error)
}

// URLResolverFunc adapts a function to URLResolver
type URLResolverFunc func(ctx context.Context, uri string) (string, error)

func (f URLResolverFunc) ResolveURL(ctx context.Context, uri string) (string, error) {
	return f(ctx, uri)
}

// BaseURLResolver maps scheme://path to BaseURL/path. URIs that already
// use http or https are returned unchanged.
type BaseURLResolver struct {
	BaseURL string
}

func (r BaseURLResolver) ResolveURL(ctx context.Context, uri string) (string, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri, nil
	}
	_, path, found := strings.Cut(uri, "://")
	if !found {
		path = uri
	}
	base := strings.TrimSuffix(r.BaseURL, "/")
	if base == "" {
		return "/" + strings.TrimPrefix(path, "/"), nil
	}
	return base + "/" + strings.TrimPrefix(path, "/"), nil
}
