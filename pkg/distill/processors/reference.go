package processors

import (
	"context"
	"fmt"

	"github.com/spf13/cast"
	"github.com/tendant/content-distill/pkg/distill"
)

type depthKey struct{}

// depthState travels with nested distillation so that the limit chosen for
// the outermost field applies to every level below it.
type depthState struct {
	level int
	limit int
}

func depthFromContext(ctx context.Context) (depthState, bool) {
	st, ok := ctx.Value(depthKey{}).(depthState)
	return st, ok
}

// ProcessEntityReferenceType renders a referenced entity as
// {target_type, target_id}. Registries built by Registry replace it with a
// handler that distills targets within the depth limit.
func (s *Standard) ProcessEntityReferenceType(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
	return s.reference(ctx, nil, value, settings)
}

// referenceHandler renders references, distilling targets with nested while
// the depth limit allows.
func (s *Standard) referenceHandler(nested func() distill.Processor) distill.Handler {
	return func(ctx context.Context, value any, index int, settings distill.Settings) (any, error) {
		return s.reference(ctx, nested(), value, settings)
	}
}

func (s *Standard) reference(ctx context.Context, nested distill.Processor, value any, settings distill.Settings) (any, error) {
	target, err := s.referencedEntity(ctx, value)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return s.referenceStub(value, settings), nil
	}

	st, inner := depthFromContext(ctx)
	if !inner {
		st = depthState{limit: settings.Int("depth", s.maxDepth)}
	}
	if st.level >= st.limit || nested == nil {
		return map[string]any{
			"target_type": target.EntityTypeID(),
			"target_id":   target.ID(),
		}, nil
	}

	st.level++
	nestedCtx := context.WithValue(ctx, depthKey{}, st)
	opts := append(distill.OptionsFromContext(ctx), distill.WithProcessor(nested))
	values, err := distill.Distill(nestedCtx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("distill %s/%s: %w", target.EntityTypeID(), target.ID(), err)
	}
	return values, nil
}

// referencedEntity returns the loaded target of value, or nil when value only
// carries the stored target id.
func (s *Standard) referencedEntity(ctx context.Context, value any) (distill.Entity, error) {
	switch v := value.(type) {
	case distill.Entity:
		return v, nil
	case distill.EntityReferenceList:
		refs, err := v.ReferencedEntities(ctx)
		if err != nil {
			return nil, err
		}
		if len(refs) == 0 {
			return nil, nil
		}
		return refs[0].Entity, nil
	}
	return nil, nil
}

func (s *Standard) referenceStub(value any, settings distill.Settings) any {
	id, ok := property(value, "target_id")
	if !ok || id == nil {
		return nil
	}
	targetType := settings.String("target_type", "")
	if list, ok := value.(distill.FieldItemList); ok && targetType == "" {
		targetType = cast.ToString(list.Definition().Settings["target_type"])
	}
	if t, ok := property(value, "target_type"); ok && t != nil {
		targetType = cast.ToString(t)
	}
	return map[string]any{
		"target_type": targetType,
		"target_id":   cast.ToString(id),
	}
}
