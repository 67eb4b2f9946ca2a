package browse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/iot-admin-core/internal/smartname"
)

// Kind selects which voice-assistant view of the devices is browsed.
type Kind string

// Browse kinds.
const (
	KindAlexa  Kind = "alexa"
	KindAlexa3 Kind = "alexa3"
	KindGoogle Kind = "google"
	KindAlisa  Kind = "alisa"
)

// kindCommands maps each kind to the adapter command that lists it.
var kindCommands = map[Kind]string{
	KindAlexa:  "browse",
	KindAlexa3: "browse3",
	KindGoogle: "browseGH",
	KindAlisa:  "browseAlisa",
}

// ParseKind returns the Kind named s (case-insensitive).
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindCommands[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Command returns the adapter command for k, or "" for an unknown kind.
func (k Kind) Command() string {
	return kindCommands[k]
}

// Kinds returns every browse kind.
func Kinds() []Kind {
	return []Kind{KindAlexa, KindAlexa3, KindGoogle, KindAlisa}
}

// DeviceDescription is one device of a browse result.
type DeviceDescription struct {
	FriendlyName string               `json:"friendlyName"`
	AutoDetected bool                 `json:"autoDetected,omitempty"`
	RoomName     string               `json:"roomName,omitempty"`
	FuncName     string               `json:"funcName,omitempty"`
	Type         string               `json:"type,omitempty"`
	Controls     []ControlDescription `json:"controls"`
}

// ControlDescription groups the states behind one capability.
type ControlDescription struct {
	Type   string        `json:"type"`
	States OrderedStates `json:"states"`
}

// StateDescription is one state of a control.
type StateDescription struct {
	Name      string `json:"name,omitempty"`
	ID        string `json:"id"`
	SmartName any    `json:"smartName,omitempty"`
}

// HasSmartName reports whether the state carries a configured descriptor.
// Disabled (false or null) and legacy empty values do not count.
func (s StateDescription) HasSmartName() bool {
	v := smartname.Normalize(s.SmartName, s.SmartName != nil, smartname.DefaultLanguage)
	return v.Kind == smartname.KindDescriptor
}

// NamedState is a state together with the key it is listed under.
type NamedState struct {
	Key   string
	State StateDescription
}

// OrderedStates is the states object of a control in document order.
//
// The adapter sends states as a JSON object keyed by state role. Order
// matters for picking the representative state, so the keys are decoded in
// the order they appear. A JSON array of states is accepted too; its keys
// are the state names.
type OrderedStates []NamedState

// UnmarshalJSON decodes a states object or array keeping order.
func (o *OrderedStates) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []StateDescription
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		out := make(OrderedStates, 0, len(list))
		for _, s := range list {
			out = append(out, NamedState{Key: s.Name, State: s})
		}
		*o = out
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("states: expected object, got %v", tok)
	}

	out := OrderedStates{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("states: expected key, got %v", tok)
		}
		var s StateDescription
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("states[%s]: %w", key, err)
		}
		out = append(out, NamedState{Key: key, State: s})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

// MarshalJSON encodes the states as an object in order.
func (o OrderedStates) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ns := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ns.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(ns.State)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IDs returns the state ids in order.
func (o OrderedStates) IDs() []string {
	ids := make([]string, 0, len(o))
	for _, ns := range o {
		ids = append(ids, ns.State.ID)
	}
	return ids
}

// RepresentativeID picks the one state id that stands for the control: the
// first state with a configured smart name, otherwise the first state.
// Returns "" for a control without states.
func RepresentativeID(c ControlDescription) string {
	for _, ns := range c.States {
		if ns.State.HasSmartName() {
			return ns.State.ID
		}
	}
	if len(c.States) > 0 {
		return c.States[0].State.ID
	}
	return ""
}

// StateIDs returns every state id of the device in order.
func (d DeviceDescription) StateIDs() []string {
	var ids []string
	for _, c := range d.Controls {
		ids = append(ids, c.States.IDs()...)
	}
	return ids
}
