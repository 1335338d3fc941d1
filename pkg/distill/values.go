package distill

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Values is the ordered output of a Distiller. Keys keep the position of
// their first insertion; overwriting a key does not move it.
type Values struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewValues creates an empty Values map
func NewValues() *Values {
	return &Values{om: orderedmap.New[string, any]()}
}

// Get returns the value stored under key
func (v *Values) Get(key string) (any, bool) {
	return v.om.Get(key)
}

// Set stores value under key
func (v *Values) Set(key string, value any) {
	v.om.Set(key, value)
}

// Delete removes key
func (v *Values) Delete(key string) {
	v.om.Delete(key)
}

// Len returns the number of keys
func (v *Values) Len() int {
	return v.om.Len()
}

// Keys returns the keys in order
func (v *Values) Keys() []string {
	keys := make([]string, 0, v.om.Len())
	for pair := v.om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// ToMap returns an unordered copy. Nested Values are converted as well.
func (v *Values) ToMap() map[string]any {
	out := make(map[string]any, v.om.Len())
	for pair := v.om.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = plain(pair.Value)
	}
	return out
}

func plain(value any) any {
	switch val := value.(type) {
	case *Values:
		return val.ToMap()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return value
	}
}

// MarshalJSON encodes the values as a JSON object in key order.
func (v *Values) MarshalJSON() ([]byte, error) {
	return v.om.MarshalJSON()
}
