package smartname

import (
	"bytes"
	"encoding/json"
)

// Opt is a patch field with three states: unset (leave alone), null
// (remove) and a value. The zero Opt is unset.
type Opt[T any] struct {
	set  bool
	null bool
	val  T
}

// Set returns an Opt holding v.
func Set[T any](v T) Opt[T] {
	return Opt[T]{set: true, val: v}
}

// Null returns an Opt that removes the field.
func Null[T any]() Opt[T] {
	return Opt[T]{set: true, null: true}
}

// IsSet reports whether the field was provided at all.
func (o Opt[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was provided as null.
func (o Opt[T]) IsNull() bool { return o.set && o.null }

// Get returns the value and true when the field holds a value.
func (o Opt[T]) Get() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.val, true
}

// UnmarshalJSON records presence; a literal null becomes Null.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.null = true
		var zero T
		o.val = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.val)
}

// MarshalJSON encodes null for unset and null fields.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.val)
}

// Patch is a partial update of a descriptor. Unset fields are not touched.
//
//   - SmartName: display name(s) for the active language; null or ""
//     removes the entry. Comma-separated names are deduplicated.
//   - ByON: null removes; "" is kept and means default behavior.
//   - SmartType: null or "" removes.
//   - NoAutoDetect: false or null removes; true sets.
type Patch struct {
	SmartName    Opt[string] `json:"smartName"`
	ByON         Opt[string] `json:"byON"`
	SmartType    Opt[string] `json:"smartType"`
	NoAutoDetect Opt[bool]   `json:"noAutoDetect"`
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return !p.SmartName.IsSet() && !p.ByON.IsSet() && !p.SmartType.IsSet() && !p.NoAutoDetect.IsSet()
}

// ClearPatch removes every field, pruning the descriptor unless Google
// Home keys remain.
func ClearPatch() Patch {
	return Patch{
		SmartName:    Null[string](),
		ByON:         Null[string](),
		SmartType:    Null[string](),
		NoAutoDetect: Null[bool](),
	}
}

// DecodePatch validates body against the patch schema and decodes it.
func DecodePatch(body []byte) (Patch, error) {
	var p Patch
	doc, err := validateDocument(patchSchema(), body, ErrInvalidPatch)
	if err != nil {
		return p, err
	}
	if numericByONToString(doc) {
		if body, err = json.Marshal(doc); err != nil {
			return p, wrapPatchErr(err)
		}
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, wrapPatchErr(err)
	}
	return p, nil
}
