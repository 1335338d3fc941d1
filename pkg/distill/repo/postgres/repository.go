package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-distill/pkg/distill"
	"github.com/tendant/content-distill/pkg/distill/entity"
)

// Schema is the DDL for the tables used by Repository.
//
//go:embed schema.sql
var Schema string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements entity.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "field") {
				return fmt.Errorf("%w: duplicate field", entity.ErrInvalidDocument)
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - apply schema.sql")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return entity.ErrEntityNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Save upserts the document. Field definitions and items are replaced as a
// whole inside one transaction.
func (r *Repository) Save(ctx context.Context, doc *entity.Document) error {
	if err := doc.Validate(); err != nil {
		return &entity.RepositoryError{EntityType: doc.Type, ID: doc.ID, Op: "save", Err: err}
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("begin save", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO entity (entity_type, id, bundle, fieldable, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (entity_type, id) DO UPDATE
		SET bundle = EXCLUDED.bundle, fieldable = EXCLUDED.fieldable, updated_at = EXCLUDED.updated_at`,
		doc.Type, doc.ID, doc.Bundle, doc.IsFieldable(), now)
	if err != nil {
		return r.handlePostgresError("save entity", err)
	}

	// Items cascade with their definitions
	_, err = tx.Exec(ctx, `DELETE FROM entity_field_definition WHERE entity_type = $1 AND entity_id = $2`,
		doc.Type, doc.ID)
	if err != nil {
		return r.handlePostgresError("clear fields", err)
	}

	for weight, f := range doc.Fields {
		_, err = tx.Exec(ctx, `
			INSERT INTO entity_field_definition (
				entity_type, entity_id, name, type, weight, multiple, base_field, settings
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			doc.Type, doc.ID, f.Name, f.Type, weight, f.Multiple, f.BaseField, f.Settings)
		if err != nil {
			return r.handlePostgresError("save field", err)
		}

		for delta, item := range f.Items {
			_, err = tx.Exec(ctx, `
				INSERT INTO entity_field_item (entity_type, entity_id, field_name, delta, properties)
				VALUES ($1, $2, $3, $4, $5)`,
				doc.Type, doc.ID, f.Name, delta, map[string]any(item))
			if err != nil {
				return r.handlePostgresError("save field item", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("commit save", err)
	}
	return nil
}

// Get loads a document with its fields in weight order
func (r *Repository) Get(ctx context.Context, entityType, id string) (*entity.Document, error) {
	doc := &entity.Document{}
	var fieldable bool
	err := r.db.QueryRow(ctx, `
		SELECT entity_type, id, bundle, fieldable
		FROM entity WHERE entity_type = $1 AND id = $2`,
		entityType, id).Scan(&doc.Type, &doc.ID, &doc.Bundle, &fieldable)
	if err != nil {
		return nil, r.handlePostgresError("get entity", err)
	}
	doc.Fieldable = &fieldable

	rows, err := r.db.Query(ctx, `
		SELECT name, type, multiple, base_field, settings
		FROM entity_field_definition
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY weight`, entityType, id)
	if err != nil {
		return nil, r.handlePostgresError("get fields", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var def distill.FieldDefinition
		var settings map[string]any
		if err := rows.Scan(&def.Name, &def.Type, &def.Multiple, &def.BaseField, &settings); err != nil {
			return nil, r.handlePostgresError("scan field", err)
		}
		def.Settings = settings
		index[def.Name] = len(doc.Fields)
		doc.Fields = append(doc.Fields, entity.FieldDocument{FieldDefinition: def})
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate fields", err)
	}

	itemRows, err := r.db.Query(ctx, `
		SELECT field_name, properties
		FROM entity_field_item
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY field_name, delta`, entityType, id)
	if err != nil {
		return nil, r.handlePostgresError("get field items", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var name string
		var props map[string]any
		if err := itemRows.Scan(&name, &props); err != nil {
			return nil, r.handlePostgresError("scan field item", err)
		}
		i, ok := index[name]
		if !ok {
			continue
		}
		doc.Fields[i].Items = append(doc.Fields[i].Items, entity.Item(props))
	}
	if err := itemRows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate field items", err)
	}

	return doc, nil
}

// Delete removes a document together with its fields
func (r *Repository) Delete(ctx context.Context, entityType, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM entity WHERE entity_type = $1 AND id = $2`, entityType, id)
	if err != nil {
		return r.handlePostgresError("delete entity", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrEntityNotFound
	}
	return nil
}

// List returns the documents of an entity type ordered by id
func (r *Repository) List(ctx context.Context, entityType string) ([]*entity.Document, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM entity WHERE entity_type = $1 ORDER BY id`, entityType)
	if err != nil {
		return nil, r.handlePostgresError("list entities", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, r.handlePostgresError("scan entity id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate entities", err)
	}

	docs := make([]*entity.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := r.Get(ctx, entityType, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
