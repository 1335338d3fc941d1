package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tendant/content-distill/pkg/distill"
)

// Document is the serialized form of an entity.
type Document struct {
	Type   string `json:"type"`
	Bundle string `json:"bundle"`
	ID     string `json:"id"`

	// Fieldable defaults to true. Documents with fieldable=false decode to a Stub.
	Fieldable *bool           `json:"fieldable,omitempty"`
	Fields    []FieldDocument `json:"fields,omitempty"`
}

// FieldDocument is a field definition together with its items.
type FieldDocument struct {
	distill.FieldDefinition
	Items []Item `json:"items"`
}

// IsFieldable reports whether the document describes a fieldable entity
func (d *Document) IsFieldable() bool {
	return d.Fieldable == nil || *d.Fieldable
}

// Validate checks the document for required attributes and duplicate fields
func (d *Document) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidDocument)
	}
	if d.Bundle == "" {
		d.Bundle = d.Type
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" || f.Type == "" {
			return fmt.Errorf("%w: field name and type are required", ErrInvalidDocument)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %s", ErrInvalidDocument, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Build converts the document into an entity. References are resolved through loader.
func (d *Document) Build(loader Loader) distill.Entity {
	if !d.IsFieldable() {
		return Stub{Type: d.Type, BundleName: d.Bundle, EntityID: d.ID}
	}
	e := New(d.Type, d.Bundle, d.ID).WithLoader(loader)
	for _, f := range d.Fields {
		e.AddField(f.FieldDefinition, f.Items...)
	}
	return e
}

// ToDocument converts an in-memory entity or stub into a document.
func ToDocument(e distill.Entity) *Document {
	doc := &Document{Type: e.EntityTypeID(), Bundle: e.Bundle(), ID: e.ID()}
	ent, ok := e.(*Entity)
	if !ok {
		fieldable := false
		doc.Fieldable = &fieldable
		return doc
	}
	for _, def := range ent.definitions {
		doc.Fields = append(doc.Fields, FieldDocument{FieldDefinition: def, Items: ent.values[def.Name]})
	}
	return doc
}

// Clone returns a deep copy of the document through its JSON form.
func (d *Document) Clone() (*Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeDocuments reads a single document or a non-empty JSON array of
// documents.
func DecodeDocuments(r io.Reader) ([]*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidDocument)
	}

	var docs []*Document
	if data[0] == '[' {
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	} else {
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		docs = append(docs, &doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents", ErrInvalidDocument)
	}
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("%w: null document at %d", ErrInvalidDocument, i)
		}
		if err := doc.Validate(); err != nil {
			return nil, err
		}
	}
	return docs, nil
}
