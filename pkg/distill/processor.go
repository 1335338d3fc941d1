package distill

import (
	"context"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Settings carries processor configuration and context into handlers.
type Settings map[string]any

// String returns the string setting for key, or def when unset.
func (s Settings) String(key, def string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return def
}

// Int returns the integer setting for key, or def when unset or malformed.
func (s Settings) Int(key string, def int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Bool returns the boolean setting for key, or def when unset.
func (s Settings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// Handler converts a field value into an output value.
//
// For single-value fields value is the whole FieldItemList and index is 0.
// For multi-value fields value is a FieldItem, or the referenced Entity for
// entity reference fields, and index is the item's delta.
type Handler func(ctx context.Context, value any, index int, settings Settings) (any, error)

// Processor is the capability contract a Distiller needs from its handler
// registry. Callers probe with HasFieldHandler or HasTypeHandler before invoking.
type Processor interface {
	HasFieldHandler(fieldName string) bool
	HasTypeHandler(fieldType string) bool
	ProcessField(ctx context.Context, fieldName string, value any, index int, settings Settings) (any, error)
	ProcessType(ctx context.Context, fieldType string, value any, index int, settings Settings) (any, error)

	// SystemFieldTypes lists the field types known to the platform. It is
	// informational and not used for dispatch.
	SystemFieldTypes() []string
}

// FieldTypeSource enumerates the field types the platform understands.
type FieldTypeSource interface {
	FieldTypes() []string
}

// Registry is a typed lookup table of handlers keyed by handler identifier
// (see FieldHandlerName and TypeHandlerName).
//
// A Registry is read-only once it is handed to a Distiller; Register* calls
// must complete before it is shared.
type Registry struct {
	handlers   map[string]Handler
	fieldTypes []string
}

// RegistryOption configures a Registry at construction.
type RegistryOption func(*Registry)

// WithSystemFieldTypes sets the platform field types reported by SystemFieldTypes.
func WithSystemFieldTypes(types ...string) RegistryOption {
	return func(r *Registry) {
		r.fieldTypes = append(r.fieldTypes[:0], types...)
	}
}

// WithFieldTypeSource reads the platform field types from src once, at construction.
func WithFieldTypeSource(src FieldTypeSource) RegistryOption {
	return func(r *Registry) {
		if src == nil {
			return
		}
		r.fieldTypes = append(r.fieldTypes[:0], src.FieldTypes()...)
	}
}

// WithFieldHandler registers a handler for a field name.
func WithFieldHandler(fieldName string, h Handler) RegistryOption {
	return func(r *Registry) {
		r.RegisterFieldHandler(fieldName, h)
	}
}

// WithTypeHandler registers a handler for a field type.
func WithTypeHandler(fieldType string, h Handler) RegistryOption {
	return func(r *Registry) {
		r.RegisterTypeHandler(fieldType, h)
	}
}

// NewRegistry creates a registry. An empty registry is valid: every field
// falls through to the extension hooks.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// NewRegistryFromMethods creates a registry from the exported methods of impl.
// Methods named Process<Name>Field or Process<Name>Type whose signature matches
// Handler are registered under the corresponding handler identifier.
// Options are applied after discovery and may override discovered handlers.
func NewRegistryFromMethods(impl any, opts ...RegistryOption) *Registry {
	r := NewRegistry()
	if impl != nil {
		r.registerMethods(impl)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Registry) registerMethods(impl any) {
	v := reflect.ValueOf(impl)
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		name := t.Method(i).Name
		fn, ok := v.Method(i).Interface().(func(context.Context, any, int, Settings) (any, error))
		if !ok {
			continue
		}

		// Process<Camel>Field -> process<Camel>Field
		rest, found := strings.CutPrefix(name, "Process")
		if !found {
			continue
		}
		switch {
		case len(rest) > len(fieldHandlerSuffix) && strings.HasSuffix(rest, fieldHandlerSuffix),
			len(rest) > len(typeHandlerSuffix) && strings.HasSuffix(rest, typeHandlerSuffix):
			r.handlers[handlerPrefix+rest] = Handler(fn)
		}
	}
}

// RegisterFieldHandler registers h for the named field.
func (r *Registry) RegisterFieldHandler(fieldName string, h Handler) {
	if h == nil {
		return
	}
	r.handlers[FieldHandlerName(fieldName)] = h
}

// RegisterTypeHandler registers h for a field type.
func (r *Registry) RegisterTypeHandler(fieldType string, h Handler) {
	if h == nil {
		return
	}
	r.handlers[TypeHandlerName(fieldType)] = h
}

// HasFieldHandler reports whether a handler is registered for the field name.
func (r *Registry) HasFieldHandler(fieldName string) bool {
	_, ok := r.handlers[FieldHandlerName(fieldName)]
	return ok
}

// HasTypeHandler reports whether a handler is registered for the field type.
func (r *Registry) HasTypeHandler(fieldType string) bool {
	_, ok := r.handlers[TypeHandlerName(fieldType)]
	return ok
}

// ProcessField runs the handler registered for fieldName.
func (r *Registry) ProcessField(ctx context.Context, fieldName string, value any, index int, settings Settings) (any, error) {
	return r.invoke(ctx, FieldHandlerName(fieldName), value, index, settings)
}

// ProcessType runs the handler registered for fieldType.
func (r *Registry) ProcessType(ctx context.Context, fieldType string, value any, index int, settings Settings) (any, error) {
	return r.invoke(ctx, TypeHandlerName(fieldType), value, index, settings)
}

func (r *Registry) invoke(ctx context.Context, handlerName string, value any, index int, settings Settings) (any, error) {
	h, ok := r.handlers[handlerName]
	if !ok {
		return nil, &HandlerError{Handler: handlerName, Err: ErrHandlerNotFound}
	}
	return h(ctx, value, index, settings)
}

// SystemFieldTypes returns a copy of the platform field types.
func (r *Registry) SystemFieldTypes() []string {
	out := make([]string, len(r.fieldTypes))
	copy(out, r.fieldTypes)
	return out
}

// HandlerNames returns the registered handler identifiers in sorted order.
func (r *Registry) HandlerNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isNilProcessor reports whether p is nil or a typed nil pointer.
func isNilProcessor(p Processor) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
