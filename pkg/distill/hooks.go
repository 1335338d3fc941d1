package distill

import (
	"context"
)

// Extension hooks let other packages produce values for field types that no
// handler in the Processor covers. Subscribers are keyed by hook name (see
// HookName) and run in registration order.

// ProcessHook is a subscriber of a distill_process_<field_type> hook. Returning
// a nil value means the subscriber did not respond.
type ProcessHook func(hctx *HookContext, value any, index int, settings Settings) (any, error)

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	HookName  string
	Metadata  map[string]any // Custom metadata passed between subscribers
	StopChain bool           // Set to true to stop processing remaining subscribers
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context, hookName string) *HookContext {
	return &HookContext{
		Context:  ctx,
		HookName: hookName,
		Metadata: make(map[string]any),
	}
}

// Responses collects subscriber results. Plain values and list results are
// appended to Indexed; map results are merged into Keyed.
type Responses struct {
	Indexed []any
	Keyed   map[string]any
}

// Empty reports whether no subscriber produced a value.
func (r Responses) Empty() bool {
	return len(r.Indexed) == 0 && len(r.Keyed) == 0
}

func (r *Responses) add(result any) {
	switch v := result.(type) {
	case nil:
	case map[string]any:
		if r.Keyed == nil {
			r.Keyed = make(map[string]any, len(v))
		}
		for k, val := range v {
			if prev, ok := r.Keyed[k]; ok {
				r.Keyed[k] = mergeResponse(prev, val)
				continue
			}
			r.Keyed[k] = val
		}
	case []any:
		r.Indexed = append(r.Indexed, v...)
	default:
		r.Indexed = append(r.Indexed, v)
	}
}

func mergeResponse(prev, next any) any {
	if list, ok := prev.([]any); ok {
		return append(append([]any(nil), list...), next)
	}
	return []any{prev, next}
}

// ResponsePolicy reduces the collected hook responses to a single value.
type ResponsePolicy func(Responses) any

// FirstResponse is the default ResponsePolicy. It yields nil when nothing
// responded, the keyed responses as-is when no subscriber filled the first
// indexed slot, and the first indexed response otherwise.
func FirstResponse(resp Responses) any {
	if resp.Empty() {
		return nil
	}
	if len(resp.Indexed) == 0 {
		return resp.Keyed
	}
	return resp.Indexed[0]
}

// Hooks holds the ordered subscribers of each extension hook.
type Hooks struct {
	subscribers map[string][]ProcessHook
}

// NewHooks creates an empty hook set
func NewHooks() *Hooks {
	return &Hooks{subscribers: make(map[string][]ProcessHook)}
}

// Subscribe appends hook to the subscribers of hookName.
func (h *Hooks) Subscribe(hookName string, hook ProcessHook) *Hooks {
	if hook == nil {
		return h
	}
	if h.subscribers == nil {
		h.subscribers = make(map[string][]ProcessHook)
	}
	h.subscribers[hookName] = append(h.subscribers[hookName], hook)
	return h
}

// SubscribeType subscribes hook to the extension hook of a field type.
func (h *Hooks) SubscribeType(fieldType string, hook ProcessHook) *Hooks {
	return h.Subscribe(HookName(fieldType), hook)
}

// Has reports whether hookName has at least one subscriber.
func (h *Hooks) Has(hookName string) bool {
	if h == nil {
		return false
	}
	return len(h.subscribers[hookName]) > 0
}

// Invoke runs every subscriber of hookName and collects their responses.
// The first subscriber error stops the chain and is returned.
func (h *Hooks) Invoke(ctx context.Context, hookName string, value any, index int, settings Settings) (Responses, error) {
	var resp Responses
	if h == nil || len(h.subscribers[hookName]) == 0 {
		return resp, nil
	}

	hctx := NewHookContext(ctx, hookName)
	for _, hook := range h.subscribers[hookName] {
		result, err := hook(hctx, value, index, settings)
		if err != nil {
			return resp, err
		}
		resp.add(result)
		if hctx.StopChain {
			break
		}
	}
	return resp, nil
}
