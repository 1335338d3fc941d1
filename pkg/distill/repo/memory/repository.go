package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/content-distill/pkg/distill/entity"
)

// Repository implements entity.Repository using in-memory storage
type Repository struct {
	mu   sync.RWMutex
	docs map[string]*entity.Document // "type/id" -> document
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		docs: make(map[string]*entity.Document),
	}
}

func key(entityType, id string) string {
	return entityType + "/" + id
}

// Save stores a copy of doc. Documents without an id are assigned a UUID.
func (r *Repository) Save(ctx context.Context, doc *entity.Document) error {
	if err := doc.Validate(); err != nil {
		return &entity.RepositoryError{EntityType: doc.Type, ID: doc.ID, Op: "save", Err: err}
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	// Create a copy to avoid external modifications
	docCopy, err := doc.Clone()
	if err != nil {
		return &entity.RepositoryError{EntityType: doc.Type, ID: doc.ID, Op: "save", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[key(doc.Type, doc.ID)] = docCopy
	return nil
}

// Get returns a copy of the stored document
func (r *Repository) Get(ctx context.Context, entityType, id string) (*entity.Document, error) {
	r.mu.RLock()
	doc, exists := r.docs[key(entityType, id)]
	r.mu.RUnlock()

	if !exists {
		return nil, entity.ErrEntityNotFound
	}
	// Return a copy to prevent external modifications
	return doc.Clone()
}

// Delete removes a document
func (r *Repository) Delete(ctx context.Context, entityType, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(entityType, id)
	if _, exists := r.docs[k]; !exists {
		return entity.ErrEntityNotFound
	}
	delete(r.docs, k)
	return nil
}

// List returns the documents of an entity type ordered by id
func (r *Repository) List(ctx context.Context, entityType string) ([]*entity.Document, error) {
	r.mu.RLock()
	var docs []*entity.Document
	for _, doc := range r.docs {
		if doc.Type == entityType {
			docs = append(docs, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})

	out := make([]*entity.Document, 0, len(docs))
	for _, doc := range docs {
		c, err := doc.Clone()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
