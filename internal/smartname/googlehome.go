package smartname

import (
	"strings"

	"github.com/nerrad567/iot-admin-core/internal/objects"
)

// GoogleHomePatch edits the Google Home keys of a descriptor. Unset fields
// are not touched; null or "" removes a key.
//
// Attributes is the raw JSON text typed by the user. It must be a JSON
// object; anything else is rejected with ErrInvalidJSON before the object
// is touched.
type GoogleHomePatch struct {
	Type       Opt[string]   `json:"type"`
	Traits     Opt[[]string] `json:"traits"`
	Attributes Opt[string]   `json:"attributes"`
	Conv2GH    Opt[string]   `json:"conv2GH"`
	Conv2IOB   Opt[string]   `json:"conv2iob"`
}

// IsEmpty reports whether no field is set.
func (p GoogleHomePatch) IsEmpty() bool {
	return !p.Type.IsSet() && !p.Traits.IsSet() && !p.Attributes.IsSet() &&
		!p.Conv2GH.IsSet() && !p.Conv2IOB.IsSet()
}

// UpdateGoogleHome applies patch to the descriptor of obj in place, at the
// same location Update uses. The descriptor is pruned afterwards like any
// other update.
func UpdateGoogleHome(obj *objects.Object, patch GoogleHomePatch, opts Options) error {
	if err := opts.check(obj); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	// Validate before anything is mutated.
	attributes := ""
	if text, ok := patch.Attributes.Get(); ok {
		attributes = strings.TrimSpace(text)
		if attributes != "" {
			if _, err := parseAttributes(attributes); err != nil {
				return err
			}
		}
	}

	loc := Resolve(opts.NoCommon, opts.InstanceID)
	desc := load(obj, loc, opts.lang())

	setOrDelete(desc, KeyGHType, patch.Type)
	setOrDelete(desc, KeyGHConv2GH, patch.Conv2GH)
	setOrDelete(desc, KeyGHConv2IOB, patch.Conv2IOB)

	if patch.Attributes.IsSet() {
		if attributes == "" {
			delete(desc, KeyGHAttributes)
		} else {
			desc[KeyGHAttributes] = attributes
		}
	}

	if patch.Traits.IsSet() {
		traits, _ := patch.Traits.Get()
		list := make([]any, 0, len(traits))
		for _, tr := range traits {
			if tr = strings.TrimSpace(tr); tr != "" {
				list = append(list, tr)
			}
		}
		if len(list) == 0 {
			delete(desc, KeyGHTraits)
		} else {
			desc[KeyGHTraits] = list
		}
	}

	store(obj, loc, desc)
	return nil
}

// GoogleHome holds the Google Home view of a descriptor.
type GoogleHome struct {
	Type       string         `json:"type,omitempty"`
	Traits     []string       `json:"traits,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Conv2GH    string         `json:"conv2GH,omitempty"`
	Conv2IOB   string         `json:"conv2iob,omitempty"`
}

// GoogleHome extracts the Google Home keys. Stored attribute text that no
// longer parses is omitted.
func (d Descriptor) GoogleHome() GoogleHome {
	gh := GoogleHome{}
	gh.Type, _ = d[KeyGHType].(string)
	gh.Conv2GH, _ = d[KeyGHConv2GH].(string)
	gh.Conv2IOB, _ = d[KeyGHConv2IOB].(string)

	if list, ok := d[KeyGHTraits].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				gh.Traits = append(gh.Traits, s)
			}
		}
	}
	if text, ok := d[KeyGHAttributes].(string); ok && text != "" {
		if attrs, err := parseAttributes(text); err == nil {
			gh.Attributes = attrs
		}
	}
	return gh
}

// IsZero reports whether no Google Home key is set.
func (g GoogleHome) IsZero() bool {
	return g.Type == "" && len(g.Traits) == 0 && len(g.Attributes) == 0 &&
		g.Conv2GH == "" && g.Conv2IOB == ""
}

func setOrDelete(desc Descriptor, key string, o Opt[string]) {
	if !o.IsSet() {
		return
	}
	if v, ok := o.Get(); ok && v != "" {
		desc[key] = v
		return
	}
	delete(desc, key)
}
