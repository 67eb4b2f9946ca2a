package smartname

import (
	"strconv"

	"github.com/nerrad567/iot-admin-core/internal/objects"
)

// Auxiliary descriptor keys.
const (
	KeySmartType    = "smartType"
	KeyByON         = "byON"
	KeyNoAutoDetect = "noAutoDetect"

	KeyGHType       = "ghType"
	KeyGHTraits     = "ghTraits"
	KeyGHAttributes = "ghAttributes"
	KeyGHConv2GH    = "ghConv2GH"
	KeyGHConv2IOB   = "ghConv2iob"
)

// Kind distinguishes the three states a smart name can be in.
type Kind int

const (
	// KindAbsent means the smart name was never configured.
	KindAbsent Kind = iota
	// KindDisabled means the user disabled it (legacy false, or null).
	KindDisabled
	// KindDescriptor means a canonical map is present.
	KindDescriptor
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindDisabled:
		return "disabled"
	case KindDescriptor:
		return "descriptor"
	default:
		return "absent"
	}
}

// Value is a normalized smart name. Descriptor is set only for KindDescriptor.
type Value struct {
	Kind       Kind
	Descriptor Descriptor
}

// Descriptor is the canonical smart-name map: language keys plus
// auxiliary keys. Values are JSON-compatible.
type Descriptor map[string]any

// Name returns the display name for lang, or "".
func (d Descriptor) Name(lang Language) string {
	s, _ := d[lang].(string)
	return s
}

// Names returns the language entries of d.
func (d Descriptor) Names() map[Language]string {
	out := make(map[Language]string)
	for k, v := range d {
		if s, ok := v.(string); ok && IsLanguage(k) {
			out[k] = s
		}
	}
	return out
}

// SmartType returns the device category hint, or "".
func (d Descriptor) SmartType() string {
	s, _ := d[KeySmartType].(string)
	return s
}

// ByON returns the by-ON behavior and whether the key is present.
// Legacy numeric values are rendered as decimal strings.
func (d Descriptor) ByON() (string, bool) {
	v, ok := d[KeyByON]
	if !ok {
		return "", false
	}
	switch b := v.(type) {
	case string:
		return b, true
	case float64:
		return strconv.FormatFloat(b, 'f', -1, 64), true
	case nil:
		return "", true
	default:
		return "", true
	}
}

// NoAutoDetect reports whether auto-detection is suppressed.
func (d Descriptor) NoAutoDetect() bool {
	b, _ := d[KeyNoAutoDetect].(bool)
	return b
}

// Copy returns a deep copy of d.
func (d Descriptor) Copy() Descriptor {
	if d == nil {
		return nil
	}
	cpy := make(Descriptor, len(d))
	for k, v := range d {
		if list, ok := v.([]any); ok {
			v = append([]any(nil), list...)
		}
		cpy[k] = v
	}
	return cpy
}

// Normalize coerces a stored smart-name value into its canonical form.
//
//   - not present              → Absent
//   - false or null            → Disabled
//   - non-empty string s       → Descriptor{en: s, lang: s}
//   - map                      → Descriptor (same map, not copied)
//   - anything else            → Absent
//
// Normalize has no side effects.
func Normalize(raw any, present bool, lang Language) Value {
	if !present {
		return Value{Kind: KindAbsent}
	}
	switch v := raw.(type) {
	case nil:
		return Value{Kind: KindDisabled}
	case bool:
		if !v {
			return Value{Kind: KindDisabled}
		}
	case string:
		if v == "" {
			return Value{Kind: KindAbsent}
		}
		d := Descriptor{DefaultLanguage: v}
		if lang != "" {
			d[lang] = v
		}
		return Value{Kind: KindDescriptor, Descriptor: d}
	case map[string]any:
		return Value{Kind: KindDescriptor, Descriptor: Descriptor(v)}
	case Descriptor:
		return Value{Kind: KindDescriptor, Descriptor: v}
	}
	return Value{Kind: KindAbsent}
}

// migrateNativeByON moves a legacy native.byON into d. A byON already in
// d wins. native.byON is deleted either way.
func migrateNativeByON(obj *objects.Object, d Descriptor) {
	if obj.Native == nil {
		return
	}
	legacy, ok := obj.Native[KeyByON]
	if !ok {
		return
	}
	if _, exists := d[KeyByON]; !exists {
		d[KeyByON] = legacy
	}
	delete(obj.Native, KeyByON)
}
