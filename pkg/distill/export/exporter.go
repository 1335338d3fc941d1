package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/tendant/content-distill/pkg/distill"
	"golang.org/x/sync/errgroup"
)

const contentTypeJSON = "application/json"

// Result describes one exported document
type Result struct {
	EntityType string `json:"entity_type"`
	ID         string `json:"id"`
	Key        string `json:"key"`
	URL        string `json:"url,omitempty"`
	Size       int    `json:"size"`
}

// Exporter writes distilled values to a Store
type Exporter struct {
	store       Store
	distillOpts []distill.Option
	logger      *slog.Logger
	indent      bool
	concurrency int
}

// ExporterOption configures an Exporter
type ExporterOption func(*Exporter)

// WithDistillOptions sets the options used when the exporter distills entities
func WithDistillOptions(opts ...distill.Option) ExporterOption {
	return func(e *Exporter) {
		e.distillOpts = append(e.distillOpts, opts...)
	}
}

// WithLogger sets the exporter logger
func WithLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithIndent writes indented JSON
func WithIndent(indent bool) ExporterOption {
	return func(e *Exporter) {
		e.indent = indent
	}
}

// WithConcurrency limits the parallel exports of ExportAll
func WithConcurrency(n int) ExporterOption {
	return func(e *Exporter) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewExporter creates an exporter over store
func NewExporter(store Store, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		store:       store,
		logger:      slog.Default(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes the current values of d. Stores that cannot produce URLs
// yield a Result without URL.
func (e *Exporter) Export(ctx context.Context, d *distill.Distiller) (*Result, error) {
	key := KeyFor(d.EntityType(), d.Bundle(), d.ID(), d.Language())

	var data []byte
	var err error
	if e.indent {
		data, err = json.MarshalIndent(d.Values(), "", "  ")
	} else {
		data, err = json.Marshal(d.Values())
	}
	if err != nil {
		return nil, &StorageError{Key: key, Op: "encode", Err: err}
	}

	if err := e.store.Put(ctx, key, bytes.NewReader(data), contentTypeJSON); err != nil {
		return nil, &StorageError{Key: key, Op: "put", Err: err}
	}

	result := &Result{EntityType: d.EntityType(), ID: d.ID(), Key: key, Size: len(data)}
	url, err := e.store.URL(ctx, key)
	switch {
	case err == nil:
		result.URL = url
	case errors.Is(err, ErrURLUnavailable):
	default:
		return nil, &StorageError{Key: key, Op: "url", Err: err}
	}

	e.logger.Info("exported entity", "entity_type", d.EntityType(), "id", d.ID(), "key", key, "size", len(data))
	return result, nil
}

// ExportEntity distills every field of entity and exports the values.
func (e *Exporter) ExportEntity(ctx context.Context, entity distill.Entity, opts ...distill.Option) (*Result, error) {
	all := append(append([]distill.Option{}, e.distillOpts...), opts...)
	d := distill.New(entity, all...)
	if err := d.ExtractAllFields(ctx); err != nil {
		return nil, err
	}
	return e.Export(ctx, d)
}

// ExportAll exports entities in parallel. Results keep the order of
// entities; the first error cancels the remaining exports.
func (e *Exporter) ExportAll(ctx context.Context, entities []distill.Entity, opts ...distill.Option) ([]*Result, error) {
	results := make([]*Result, len(entities))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, entity := range entities {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.ExportEntity(ctx, entity, opts...)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
