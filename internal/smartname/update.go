package smartname

import (
	"fmt"

	"github.com/nerrad567/iot-admin-core/internal/objects"
)

// Options carries the per-instance context of an update or read.
type Options struct {
	// InstanceID keys per-instance storage, e.g. "iot.0".
	InstanceID string
	// NoCommon selects per-instance storage.
	NoCommon bool
	// Language is the active UI language; SmartName patches write to it.
	Language Language
}

func (o Options) lang() Language {
	if o.Language == "" {
		return DefaultLanguage
	}
	return o.Language
}

func (o Options) check(obj *objects.Object) error {
	if obj == nil || obj.Common == nil {
		return ErrNoCommon
	}
	if o.NoCommon && o.InstanceID == "" {
		return ErrNoInstance
	}
	return nil
}

// Update applies patch to the descriptor of obj in place. The caller
// persists obj afterwards.
//
// An empty patch changes nothing, not even legacy shapes. Otherwise the
// stored value is normalized, a legacy native.byON is migrated, the patch
// fields are applied and the descriptor is pruned.
//
// Returns ErrNoCommon when obj or obj.Common is nil; callers skip the write.
// A byON outside "", "stored", "omit" and 0-100 yields ErrInvalidPatch and
// leaves obj untouched.
func Update(obj *objects.Object, patch Patch, opts Options) error {
	if err := opts.check(obj); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}
	if v, ok := patch.ByON.Get(); ok && !validByON(v) {
		return fmt.Errorf("%w: byON %q", ErrInvalidPatch, v)
	}

	loc := Resolve(opts.NoCommon, opts.InstanceID)
	desc := load(obj, loc, opts.lang())

	applySmartType(desc, patch.SmartType)
	applyByON(desc, patch.ByON)
	applyNoAutoDetect(desc, patch.NoAutoDetect)
	applySmartName(desc, patch.SmartName, obj, opts.lang())

	store(obj, loc, desc)
	return nil
}

// Read returns the normalized descriptor of obj without modifying it.
// A legacy native.byON is reported inside the returned descriptor.
func Read(obj *objects.Object, opts Options) (Value, error) {
	if err := opts.check(obj); err != nil {
		return Value{}, err
	}

	loc := Resolve(opts.NoCommon, opts.InstanceID)
	raw, present := loc.Get(obj.Common)
	v := Normalize(raw, present, opts.lang())
	if v.Kind == KindDescriptor {
		v.Descriptor = v.Descriptor.Copy()
	}

	if legacy, ok := obj.Native[KeyByON]; ok {
		if v.Kind != KindDescriptor {
			v = Value{Kind: KindDescriptor, Descriptor: Descriptor{}}
		}
		if _, exists := v.Descriptor[KeyByON]; !exists {
			v.Descriptor[KeyByON] = legacy
		}
	}
	return v, nil
}

// load returns a working copy of the stored descriptor. Absent and
// disabled values start from an empty descriptor.
func load(obj *objects.Object, loc Location, lang Language) Descriptor {
	raw, present := loc.Get(obj.Common)
	v := Normalize(raw, present, lang)

	desc := Descriptor{}
	if v.Kind == KindDescriptor {
		desc = v.Descriptor.Copy()
	}
	migrateNativeByON(obj, desc)
	return desc
}

// store prunes desc and writes it back, or clears the location when
// nothing is left.
func store(obj *objects.Object, loc Location, desc Descriptor) {
	pruneNames(desc, obj)
	if len(desc) == 0 {
		loc.Clear(obj.Common)
		return
	}
	loc.Set(obj.Common, map[string]any(desc))
}

func applySmartType(desc Descriptor, o Opt[string]) {
	if !o.IsSet() {
		return
	}
	if v, ok := o.Get(); ok && v != "" {
		desc[KeySmartType] = v
		return
	}
	delete(desc, KeySmartType)
}

func applyByON(desc Descriptor, o Opt[string]) {
	if !o.IsSet() {
		return
	}
	if v, ok := o.Get(); ok {
		desc[KeyByON] = v
		return
	}
	delete(desc, KeyByON)
}

func applyNoAutoDetect(desc Descriptor, o Opt[bool]) {
	if !o.IsSet() {
		return
	}
	if v, ok := o.Get(); ok && v {
		desc[KeyNoAutoDetect] = true
		return
	}
	delete(desc, KeyNoAutoDetect)
}

func applySmartName(desc Descriptor, o Opt[string], obj *objects.Object, lang Language) {
	if !o.IsSet() {
		return
	}
	v, _ := o.Get()
	names := CanonicalNames(v)
	if names == "" || isRedundantName(obj, lang, names) {
		delete(desc, lang)
		return
	}
	desc[lang] = names
}

// pruneNames removes language entries that carry no information: empty
// strings and names equal to the object's own name when it has no role.
func pruneNames(desc Descriptor, obj *objects.Object) {
	for _, lang := range Languages {
		v, ok := desc[lang]
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString {
			continue
		}
		if s == "" || isRedundantName(obj, lang, s) {
			delete(desc, lang)
		}
	}
}

// isRedundantName reports whether name only repeats the object's own name.
// Objects with a role keep their names.
func isRedundantName(obj *objects.Object, lang Language, name string) bool {
	if obj.Role() != "" {
		return false
	}
	own := obj.Name(lang)
	return own != "" && own == name
}
