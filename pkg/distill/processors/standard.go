package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/tendant/content-distill/pkg/distill"
)

// DefaultFieldTypes is the platform field type list reported by
// SystemFieldTypes when no other list is configured.
var DefaultFieldTypes = []string{
	"boolean",
	"changed",
	"created",
	"datetime",
	"decimal",
	"email",
	"entity_reference",
	"file",
	"float",
	"image",
	"integer",
	"language",
	"link",
	"list_float",
	"list_integer",
	"list_string",
	"map",
	"password",
	"string",
	"string_long",
	"text",
	"text_long",
	"text_with_summary",
	"timestamp",
	"uri",
	"uuid",
}

// Standard holds the type handlers for the platform field types.
type Standard struct {
	resolver   URLResolver
	maxDepth   int
	timeLayout string
	fieldTypes []string
}

// Option configures a Standard
type Option func(*Standard)

// WithURLResolver sets the resolver used by file and image fields
func WithURLResolver(r URLResolver) Option {
	return func(s *Standard) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithMaxDepth sets how many levels of referenced entities are distilled
// inline. Zero renders references as {target_type, target_id}. The "depth"
// field setting overrides it for a single field.
func WithMaxDepth(depth int) Option {
	return func(s *Standard) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithTimeLayout sets the layout of date fields. Defaults to time.RFC3339.
func WithTimeLayout(layout string) Option {
	return func(s *Standard) {
		if layout != "" {
			s.timeLayout = layout
		}
	}
}

// WithFieldTypes replaces DefaultFieldTypes
func WithFieldTypes(types ...string) Option {
	return func(s *Standard) {
		s.fieldTypes = append([]string(nil), types...)
	}
}

// NewStandard creates the standard handler set
func NewStandard(opts ...Option) *Standard {
	s := &Standard{
		resolver:   BaseURLResolver{},
		timeLayout: time.RFC3339,
		fieldTypes: DefaultFieldTypes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FieldTypes implements distill.FieldTypeSource
func (s *Standard) FieldTypes() []string {
	out := make([]string, len(s.fieldTypes))
	copy(out, s.fieldTypes)
	return out
}

// Registry builds a registry over the handlers of s. extra options are
// applied last and may add field handlers or override type handlers.
// Referenced entities are distilled with the returned registry, so one
// Standard can back several registries.
func (s *Standard) Registry(extra ...distill.RegistryOption) *distill.Registry {
	var reg *distill.Registry
	opts := []distill.RegistryOption{
		distill.WithFieldTypeSource(s),
		distill.WithTypeHandler("entity_reference", s.referenceHandler(func() distill.Processor { return reg })),
	}
	reg = distill.NewRegistryFromMethods(s, append(opts, extra...)...)
	return reg
}

// NewRegistry is a shortcut for NewStandard(opts...).Registry().
func NewRegistry(opts ...Option) *distill.Registry {
	return NewStandard(opts...).Registry()
}

// Text

func (s *Standard) text(fieldType string, value any) (any, error) {
	v := mainValue(value)
	if v == nil {
		return nil, nil
	}
	str, err := cast.ToStringE(v)
	if err != nil {
		return nil, invalid(fieldType, v, err)
	}
	return str, nil
}

func (s *Standard) ProcessStringType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.text("string", value)
}

func (s *Standard) ProcessStringLongType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.text("string_long", value)
}

func (s *Standard) ProcessTextType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.text("text", value)
}

func (s *Standard) ProcessTextLongType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.text("text_long", value)
}

func (s *Standard) ProcessEmailType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.text("email", value)
}

func (s *Standard) ProcessUriType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.text("uri", value)
}

func (s *Standard) ProcessUuidType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.text("uuid", value)
}

func (s *Standard) ProcessLanguageType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.text("language", value)
}

// ProcessTextWithSummaryType returns the text, or {value, summary} when the
// "summary" setting is true.
func (s *Standard) ProcessTextWithSummaryType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	text, err := s.text("text_with_summary", value)
	if err != nil || text == nil || !settings.Bool("summary", false) {
		return text, err
	}
	summary, _ := property(value, "summary")
	return map[string]any{
		"value":   text,
		"summary": cast.ToString(summary),
	}, nil
}

// Numbers

func (s *Standard) ProcessIntegerType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	v := mainValue(value)
	if v == nil {
		return nil, nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, invalid("integer", v, err)
	}
	return n, nil
}

func (s *Standard) ProcessFloatType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	v := mainValue(value)
	if v == nil {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, invalid("float", v, err)
	}
	return f, nil
}

// ProcessDecimalType keeps the exact stored digits. The "scale" setting
// fixes the number of decimal places.
func (s *Standard) ProcessDecimalType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	v := mainValue(value)
	if v == nil {
		return nil, nil
	}

	var d decimal.Decimal
	var err error
	switch n := v.(type) {
	case float64:
		d = decimal.NewFromFloat(n)
	case json.Number:
		d, err = decimal.NewFromString(n.String())
	default:
		d, err = decimal.NewFromString(cast.ToString(v))
	}
	if err != nil {
		return nil, invalid("decimal", v, err)
	}

	if scale := settings.Int("scale", -1); scale >= 0 {
		return json.Number(d.StringFixed(int32(scale))), nil
	}
	return json.Number(d.String()), nil
}

func (s *Standard) ProcessBooleanType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	v := mainValue(value)
	if v == nil {
		return nil, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return nil, invalid("boolean", v, err)
	}
	return b, nil
}

// Lists

// list returns the stored key, or its label from the "allowed_values"
// setting when "label" is true.
func (s *Standard) list(fieldType string, value any, settings distill.Settings) (any, error) {
	v := mainValue(value)
	if v == nil || !settings.Bool("label", false) {
		return v, nil
	}
	allowed, err := cast.ToStringMapStringE(settings["allowed_values"])
	if err != nil {
		return nil, invalid(fieldType, v, err)
	}
	if label, ok := allowed[cast.ToString(v)]; ok {
		return label, nil
	}
	return v, nil
}

func (s *Standard) ProcessListStringType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.list("list_string", value, settings)
}

func (s *Standard) ProcessListIntegerType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.list("list_integer", value, settings)
}

func (s *Standard) ProcessListFloatType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.list("list_float", value, settings)
}

// Links

// ProcessLinkType returns {uri, title}. The title is omitted when empty.
func (s *Standard) ProcessLinkType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	uri, ok := property(value, "uri")
	if !ok || uri == nil {
		return nil, nil
	}
	out := map[string]any{"uri": cast.ToString(uri)}
	if title, ok := property(value, "title"); ok && cast.ToString(title) != "" {
		out["title"] = cast.ToString(title)
	}
	return out, nil
}

// Dates

func (s *Standard) date(fieldType string, value any, settings distill.Settings) (any, error) {
	v := mainValue(value)
	if v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case string:
		if n == "" {
			return nil, nil
		}
	case float64:
		// JSON numbers are unix timestamps
		v = int64(n)
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return nil, invalid(fieldType, v, err)
	}
	return t.UTC().Format(settings.String("format", s.timeLayout)), nil
}

func (s *Standard) ProcessDatetimeType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.date("datetime", value, settings)
}

func (s *Standard) ProcessTimestampType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.date("timestamp", value, settings)
}

func (s *Standard) ProcessCreatedType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.date("created", value, settings)
}

func (s *Standard) ProcessChangedType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.date("changed", value, settings)
}

// Files

func (s *Standard) fileURL(ctx context.Context, value any) (string, bool, error) {
	uri, ok := property(value, "uri")
	if !ok || uri == nil {
		return "", false, nil
	}
	url, err := s.resolver.ResolveURL(ctx, cast.ToString(uri))
	if err != nil {
		return "", false, fmt.Errorf("resolve %v: %w", uri, err)
	}
	return url, true, nil
}

// ProcessFileType returns the resolved URL of the file
func (s *Standard) ProcessFileType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	url, ok, err := s.fileURL(ctx, value)
	if err != nil || !ok {
		return nil, err
	}
	return url, nil
}

// ProcessImageType returns {url, alt, title, width, height} with the
// properties the item carries.
func (s *Standard) ProcessImageType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	url, ok, err := s.fileURL(ctx, value)
	if err != nil || !ok {
		return nil, err
	}
	out := map[string]any{"url": url}
	for _, name := range []string{"alt", "title"} {
		if p, ok := property(value, name); ok && p != nil {
			out[name] = cast.ToString(p)
		}
	}
	for _, name := range []string{"width", "height"} {
		if p, ok := property(value, name); ok && p != nil {
			out[name] = cast.ToInt64(p)
		}
	}
	return out, nil
}
