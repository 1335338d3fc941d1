package entity

import (
	"context"

	"github.com/tendant/content-distill/pkg/distill"
)

// Repository persists entity documents.
type Repository interface {
	Save(ctx context.Context, doc *Document) error
	Get(ctx context.Context, entityType, id string) (*Document, error)
	Delete(ctx context.Context, entityType, id string) error
	List(ctx context.Context, entityType string) ([]*Document, error)
}

// RepositoryLoader loads entities from a Repository. Loaded entities resolve
// their references through the same loader.
type RepositoryLoader struct {
	repo Repository
}

// NewRepositoryLoader creates a loader over repo
func NewRepositoryLoader(repo Repository) *RepositoryLoader {
	return &RepositoryLoader{repo: repo}
}

// Load returns the entity stored under entityType and id
func (l *RepositoryLoader) Load(ctx context.Context, entityType, id string) (distill.Entity, error) {
	doc, err := l.repo.Get(ctx, entityType, id)
	if err != nil {
		return nil, err
	}
	return doc.Build(l), nil
}
