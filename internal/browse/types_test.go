package browse

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const sampleDevices = `[
	{
		"friendlyName": "Kitchen Light",
		"autoDetected": true,
		"roomName": "Kitchen",
		"funcName": "Light",
		"type": "light",
		"controls": [
			{
				"type": "dimmer",
				"states": {
					"SET": {"id": "hue.0.kitchen.level", "name": "SET"},
					"ON_SET": {"id": "hue.0.kitchen.on", "smartName": {"en": "Kitchen"}},
					"ACTUAL": {"id": "hue.0.kitchen.actual"}
				}
			}
		]
	},
	{
		"friendlyName": "Hall",
		"controls": [
			{"type": "socket", "states": {"SET": {"id": "zwave.0.hall.switch"}}}
		]
	}
]`

func TestOrderedStates_KeepsDocumentOrder(t *testing.T) {
	var devices []DeviceDescription
	if err := json.Unmarshal([]byte(sampleDevices), &devices); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	states := devices[0].Controls[0].States
	var keys []string
	for _, ns := range states {
		keys = append(keys, ns.Key)
	}
	if want := []string{"SET", "ON_SET", "ACTUAL"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}
	if want := []string{"hue.0.kitchen.level", "hue.0.kitchen.on", "hue.0.kitchen.actual"}; !reflect.DeepEqual(states.IDs(), want) {
		t.Errorf("IDs() = %v, want %v", states.IDs(), want)
	}
}

func TestOrderedStates_MarshalRoundTrip(t *testing.T) {
	in := `{"b":{"id":"x.b"},"a":{"id":"x.a"}}`
	var states OrderedStates
	if err := json.Unmarshal([]byte(in), &states); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	out, err := json.Marshal(states)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != in {
		t.Errorf("Marshal() = %s, want %s", out, in)
	}
}

func TestOrderedStates_Variants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr bool
	}{
		{name: "array", input: `[{"name":"on","id":"a.on"},{"name":"level","id":"a.level"}]`, wantIDs: []string{"a.on", "a.level"}},
		{name: "null", input: `null`, wantIDs: []string{}},
		{name: "empty object", input: `{}`, wantIDs: []string{}},
		{name: "string", input: `"x"`, wantErr: true},
		{name: "bad state", input: `{"on": 5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var states OrderedStates
			err := json.Unmarshal([]byte(tt.input), &states)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got := states.IDs(); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("IDs() = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestRepresentativeID(t *testing.T) {
	ctrl := func(states ...StateDescription) ControlDescription {
		c := ControlDescription{Type: "dimmer"}
		for _, s := range states {
			c.States = append(c.States, NamedState{Key: s.ID, State: s})
		}
		return c
	}

	tests := []struct {
		name string
		ctrl ControlDescription
		want string
	}{
		{
			name: "state with smart name wins",
			ctrl: ctrl(StateDescription{ID: "A"}, StateDescription{ID: "B", SmartName: map[string]any{"en": "B"}}, StateDescription{ID: "C"}),
			want: "B",
		},
		{
			name: "first state without smart names",
			ctrl: ctrl(StateDescription{ID: "A"}, StateDescription{ID: "B"}, StateDescription{ID: "C"}),
			want: "A",
		},
		{
			name: "first of several smart names",
			ctrl: ctrl(StateDescription{ID: "A"}, StateDescription{ID: "B", SmartName: "Bee"}, StateDescription{ID: "C", SmartName: "Sea"}),
			want: "B",
		},
		{
			name: "disabled does not count",
			ctrl: ctrl(StateDescription{ID: "A"}, StateDescription{ID: "B", SmartName: false}),
			want: "A",
		},
		{name: "no states", ctrl: ControlDescription{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RepresentativeID(tt.ctrl); got != tt.want {
				t.Errorf("RepresentativeID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		command string
	}{
		{"alexa", KindAlexa, "browse"},
		{"Alexa3", KindAlexa3, "browse3"},
		{"google", KindGoogle, "browseGH"},
		{" alisa ", KindAlisa, "browseAlisa"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if err != nil {
				t.Fatalf("ParseKind() error = %v", err)
			}
			if got != tt.want || got.Command() != tt.command {
				t.Errorf("ParseKind(%q) = %q (%s), want %q (%s)", tt.input, got, got.Command(), tt.want, tt.command)
			}
		})
	}

	if _, err := ParseKind("siri"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(siri) error = %v, want ErrUnknownKind", err)
	}
}
