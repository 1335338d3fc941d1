// Package entity provides an in-memory implementation of the distill entity
// collaborator: fieldable entities with base and bundle fields, plain item
// lists, entity reference lists resolved through a Loader, and a JSON
// document format used for storage and fixtures.
package entity
