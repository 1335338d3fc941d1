package distill

import (
	"context"
	"log/slog"
)

// TargetIDKey is the only key produced for entities that are not fieldable.
const TargetIDKey = "target_id"

// Distiller extracts the field values of one entity. It is not safe for
// concurrent use; build one per entity and discard it after reading Values.
type Distiller struct {
	fields FieldableEntity

	entityType string
	bundle     string
	id         string
	fieldable  bool
	language   string

	processor Processor
	hooks     *Hooks
	policy    ResponsePolicy
	logger    *slog.Logger

	processableFieldTypes map[string]bool
	processableFields     map[string]bool

	values *Values
}

// Option configures a Distiller
type Option func(*Distiller)

// WithProcessor sets the handler registry. A nil processor is replaced by an
// empty Registry.
func WithProcessor(p Processor) Option {
	return func(d *Distiller) {
		d.processor = p
	}
}

// WithLanguage sets the extraction language. Empty values are ignored.
func WithLanguage(langcode string) Option {
	return func(d *Distiller) {
		if langcode != "" {
			d.language = langcode
		}
	}
}

// WithHooks sets the extension hooks consulted when no handler applies.
func WithHooks(h *Hooks) Option {
	return func(d *Distiller) {
		d.hooks = h
	}
}

// WithResponsePolicy replaces FirstResponse as the hook response reducer.
func WithResponsePolicy(policy ResponsePolicy) Option {
	return func(d *Distiller) {
		if policy != nil {
			d.policy = policy
		}
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Distiller) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a Distiller for entity.
//
// Entities that do not implement FieldableEntity produce {target_id: id} and
// ignore every extraction request. For fieldable entities the field and type
// handler availability is computed once, over the fields the entity reports
// now; later schema changes are not observed.
func New(entity Entity, opts ...Option) *Distiller {
	d := &Distiller{
		entityType: entity.EntityTypeID(),
		bundle:     entity.Bundle(),
		id:         entity.ID(),
		language:   LangcodeNotSpecified,
		policy:     FirstResponse,
		logger:     slog.Default(),
		values:     NewValues(),
	}

	fields, fieldable := entity.(FieldableEntity)
	d.fieldable = fieldable

	if !fieldable {
		d.values.Set(TargetIDKey, d.id)
		return d
	}
	d.fields = fields

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	if isNilProcessor(d.processor) {
		d.processor = NewRegistry()
	}

	d.setProcessableFieldsAndTypes()
	return d
}

func (d *Distiller) setProcessableFieldsAndTypes() {
	defs := d.fields.FieldDefinitions()
	d.processableFieldTypes = make(map[string]bool, len(defs))
	d.processableFields = make(map[string]bool, len(defs))

	for _, def := range defs {
		d.processableFieldTypes[def.Type] = d.processor.HasTypeHandler(def.Type)
		d.processableFields[def.Name] = d.processor.HasFieldHandler(def.Name)
	}
}

// fieldRequest holds the per-call options of ExtractField
type fieldRequest struct {
	outputKey string
	settings  Settings
}

// FieldOption configures a single ExtractField call
type FieldOption func(*fieldRequest)

// As stores the extracted value under key instead of the field name.
func As(key string) FieldOption {
	return func(r *fieldRequest) {
		r.outputKey = key
	}
}

// WithSettings passes settings to the handlers of this field.
func WithSettings(settings Settings) FieldOption {
	return func(r *fieldRequest) {
		r.settings = settings
	}
}

// ExtractField extracts the named field into Values.
//
// Nothing happens when the entity is not fieldable or the field is missing or
// empty. Single-value fields store one value, or leave the key unset when no
// strategy produced a value. Multi-value fields store a []any with one slot per
// dispatched item. Handler and hook errors abort the call and are returned as
// *FieldError.
func (d *Distiller) ExtractField(ctx context.Context, name string, opts ...FieldOption) error {
	if !d.fieldable {
		return nil
	}
	if !d.fields.HasField(name) {
		return nil
	}
	list := d.fields.Field(name)
	if list == nil || list.IsEmpty() {
		return nil
	}

	req := fieldRequest{}
	for _, opt := range opts {
		if opt != nil {
			opt(&req)
		}
	}
	if req.outputKey == "" {
		req.outputKey = name
	}
	if req.settings == nil {
		req.settings = Settings{}
	}

	def := list.Definition()
	multiple := list.Count() > 1
	if def.BaseField {
		multiple = def.Multiple
	}

	ctx = d.handlerContext(ctx)

	if !multiple {
		value, err := d.dispatch(ctx, name, def.Type, list, 0, req.settings)
		if err != nil {
			return err
		}
		if value == nil {
			d.values.Delete(req.outputKey)
			return nil
		}
		d.values.Set(req.outputKey, value)
		return nil
	}

	results := make([]any, 0, list.Count())
	if refs, ok := list.(EntityReferenceList); ok {
		targets, err := refs.ReferencedEntities(ctx)
		if err != nil {
			return &FieldError{Field: name, Op: "load references", Err: err}
		}
		for _, ref := range targets {
			value, err := d.dispatch(ctx, name, def.Type, ref.Entity, ref.Delta, req.settings)
			if err != nil {
				return err
			}
			results = append(results, value)
		}
	} else {
		for index, item := range list.Items() {
			value, err := d.dispatch(ctx, name, def.Type, item, index, req.settings)
			if err != nil {
				return err
			}
			results = append(results, value)
		}
	}

	d.values.Set(req.outputKey, results)
	return nil
}

type inheritedKey struct{}

// inherited is what a Distiller hands down to distillers created by its
// handlers.
type inherited struct {
	hooks  *Hooks
	policy ResponsePolicy
	logger *slog.Logger
}

func (d *Distiller) handlerContext(ctx context.Context) context.Context {
	ctx = ContextWithLanguage(ctx, d.language)
	return context.WithValue(ctx, inheritedKey{}, inherited{hooks: d.hooks, policy: d.policy, logger: d.logger})
}

// OptionsFromContext returns the language, hooks, response policy and logger
// of the Distiller that called the handler owning ctx. Handlers that distill
// other entities pass them on, together with a processor of their choice.
func OptionsFromContext(ctx context.Context) []Option {
	opts := []Option{WithLanguage(LanguageFromContext(ctx))}
	if in, ok := ctx.Value(inheritedKey{}).(inherited); ok {
		opts = append(opts, WithHooks(in.hooks), WithResponsePolicy(in.policy), WithLogger(in.logger))
	}
	return opts
}

// dispatch runs the strategy that applies to one value of a field.
func (d *Distiller) dispatch(ctx context.Context, name, fieldType string, value any, index int, settings Settings) (any, error) {
	switch {
	case d.processableFields[name]:
		d.logger.Debug("distill field handler", "entity_type", d.entityType, "field", name, "index", index)
		out, err := d.processor.ProcessField(ctx, name, value, index, settings)
		if err != nil {
			return nil, &FieldError{Field: name, Index: index, Op: FieldHandlerName(name), Err: err}
		}
		return out, nil

	case d.processableFieldTypes[fieldType]:
		d.logger.Debug("distill type handler", "entity_type", d.entityType, "field", name, "type", fieldType, "index", index)
		out, err := d.processor.ProcessType(ctx, fieldType, value, index, settings)
		if err != nil {
			return nil, &FieldError{Field: name, Index: index, Op: TypeHandlerName(fieldType), Err: err}
		}
		return out, nil

	default:
		hookName := HookName(fieldType)
		d.logger.Debug("distill hook", "entity_type", d.entityType, "field", name, "hook", hookName, "index", index)
		resp, err := d.hooks.Invoke(ctx, hookName, value, index, settings)
		if err != nil {
			return nil, &FieldError{Field: name, Index: index, Op: hookName, Err: err}
		}
		return d.policy(resp), nil
	}
}

// ExtractAllFields extracts every field the entity reports, under its own
// name and with empty settings. It stops at the first error.
func (d *Distiller) ExtractAllFields(ctx context.Context) error {
	if !d.fieldable {
		return nil
	}
	for _, def := range d.fields.FieldDefinitions() {
		if err := d.ExtractField(ctx, def.Name); err != nil {
			return err
		}
	}
	return nil
}

// Values returns the accumulated output. It may be read at any time.
func (d *Distiller) Values() *Values {
	return d.values
}

// EntityType returns the entity type id copied at construction
func (d *Distiller) EntityType() string { return d.entityType }

// Bundle returns the bundle copied at construction
func (d *Distiller) Bundle() string { return d.bundle }

// ID returns the entity id copied at construction
func (d *Distiller) ID() string { return d.id }

// Language returns the extraction language
func (d *Distiller) Language() string { return d.language }

// Fieldable reports whether the entity supports the field system
func (d *Distiller) Fieldable() bool { return d.fieldable }

// ProcessableFields returns a copy of the field name handler availability map.
func (d *Distiller) ProcessableFields() map[string]bool {
	return copyFlags(d.processableFields)
}

// ProcessableFieldTypes returns a copy of the field type handler availability map.
func (d *Distiller) ProcessableFieldTypes() map[string]bool {
	return copyFlags(d.processableFieldTypes)
}

func copyFlags(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Distill is a convenience that extracts every field of entity.
func Distill(ctx context.Context, entity Entity, opts ...Option) (*Values, error) {
	d := New(entity, opts...)
	if err := d.ExtractAllFields(ctx); err != nil {
		return nil, err
	}
	return d.Values(), nil
}
