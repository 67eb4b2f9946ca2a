package objects

import (
	"encoding/json"
	"time"
)

// Type is the kind of an object in the tree.
type Type string

// Object types used by the admin core.
const (
	TypeState    Type = "state"
	TypeChannel  Type = "channel"
	TypeDevice   Type = "device"
	TypeFolder   Type = "folder"
	TypeInstance Type = "instance"
	TypeAdapter  Type = "adapter"
	TypeEnum     Type = "enum"
	TypeMeta     Type = "meta"
)

// validTypes lists the accepted object types.
var validTypes = map[Type]bool{
	TypeState:    true,
	TypeChannel:  true,
	TypeDevice:   true,
	TypeFolder:   true,
	TypeInstance: true,
	TypeAdapter:  true,
	TypeEnum:     true,
	TypeMeta:     true,
}

// Object is one node of the object tree.
//
// Common and Native are free-form JSON documents. Either may be nil: an
// object without a common section is valid in storage but cannot carry a
// smart name.
type Object struct {
	ID     string         `json:"_id"`
	Type   Type           `json:"type"`
	Common map[string]any `json:"common"`
	Native map[string]any `json:"native"`

	// From names the writer of the last change, Ts its time (Unix ms).
	From string `json:"from,omitempty"`
	Ts   int64  `json:"ts,omitempty"`
}

// DeepCopy returns a copy sharing no maps or slices with o.
func (o *Object) DeepCopy() *Object {
	if o == nil {
		return nil
	}
	cpy := *o
	cpy.Common = deepCopyMap(o.Common)
	cpy.Native = deepCopyMap(o.Native)
	return &cpy
}

// Name returns the display name of the object in lang.
//
// common.name is either a plain string or a map of language → string. For
// a map the lang entry is preferred, then "en", then any entry.
func (o *Object) Name(lang string) string {
	if o == nil || o.Common == nil {
		return ""
	}
	switch name := o.Common["name"].(type) {
	case string:
		return name
	case map[string]any:
		if s, ok := name[lang].(string); ok && s != "" {
			return s
		}
		if s, ok := name["en"].(string); ok && s != "" {
			return s
		}
		for _, v := range name {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Role returns common.role, or "" when unset.
func (o *Object) Role() string {
	if o == nil || o.Common == nil {
		return ""
	}
	role, _ := o.Common["role"].(string)
	return role
}

// State is the current value of a state object.
//
// Timestamps are Unix milliseconds: Ts is the time of the last write, Lc
// the time the value last changed.
type State struct {
	Val  any    `json:"val"`
	Ack  bool   `json:"ack"`
	Ts   int64  `json:"ts"`
	Lc   int64  `json:"lc"`
	From string `json:"from,omitempty"`
}

// Copy returns a copy of s. Map and slice values are copied deeply.
func (s *State) Copy() *State {
	if s == nil {
		return nil
	}
	cpy := *s
	cpy.Val = deepCopyValue(s.Val)
	return &cpy
}

// sameValue reports whether two state values are equal after JSON
// encoding, so 1 and 1.0 compare equal.
func sameValue(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}

// nowMillis returns the current time in Unix milliseconds.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
