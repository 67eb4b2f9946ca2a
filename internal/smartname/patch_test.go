package smartname

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOpt_UnmarshalJSON(t *testing.T) {
	var p Patch
	body := `{"smartName": "Lamp", "byON": null, "noAutoDetect": false}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if v, ok := p.SmartName.Get(); !ok || v != "Lamp" {
		t.Errorf("SmartName = %q, %v", v, ok)
	}
	if !p.ByON.IsSet() || !p.ByON.IsNull() {
		t.Errorf("ByON set=%v null=%v, want set null", p.ByON.IsSet(), p.ByON.IsNull())
	}
	if p.SmartType.IsSet() {
		t.Error("SmartType should be unset")
	}
	if v, ok := p.NoAutoDetect.Get(); !ok || v {
		t.Errorf("NoAutoDetect = %v, %v, want false, true", v, ok)
	}
}

func TestOpt_MarshalJSON(t *testing.T) {
	p := Patch{SmartName: Set("Lamp"), ByON: Null[string]()}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"smartName":"Lamp","byON":null,"smartType":null,"noAutoDetect":null}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestDecodePatch(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		check   func(t *testing.T, p Patch)
	}{
		{
			name: "empty object",
			body: `{}`,
			check: func(t *testing.T, p Patch) {
				if !p.IsEmpty() {
					t.Error("expected empty patch")
				}
			},
		},
		{
			name: "numeric byON",
			body: `{"byON": 75}`,
			check: func(t *testing.T, p Patch) {
				if v, ok := p.ByON.Get(); !ok || v != "75" {
					t.Errorf("ByON = %q, %v, want 75", v, ok)
				}
			},
		},
		{
			name: "null smartType",
			body: `{"smartType": null}`,
			check: func(t *testing.T, p Patch) {
				if !p.SmartType.IsNull() {
					t.Error("SmartType should be null")
				}
			},
		},
		{
			name: "byON keywords and bounds",
			body: `{"byON": "omit"}`,
			check: func(t *testing.T, p Patch) {
				if v, _ := p.ByON.Get(); v != "omit" {
					t.Errorf("ByON = %q, want omit", v)
				}
			},
		},
		{
			name: "numeric byON upper bound",
			body: `{"byON": 100}`,
			check: func(t *testing.T, p Patch) {
				if v, _ := p.ByON.Get(); v != "100" {
					t.Errorf("ByON = %q, want 100", v)
				}
			},
		},
		{name: "byON word", body: `{"byON": "banana"}`, wantErr: ErrInvalidPatch},
		{name: "byON number above 100", body: `{"byON": 250}`, wantErr: ErrInvalidPatch},
		{name: "byON negative string", body: `{"byON": "-5"}`, wantErr: ErrInvalidPatch},
		{name: "byON fraction", body: `{"byON": 12.5}`, wantErr: ErrInvalidPatch},
		{name: "byON string above 100", body: `{"byON": "101"}`, wantErr: ErrInvalidPatch},
		{name: "unknown field", body: `{"smartname": "x"}`, wantErr: ErrInvalidPatch},
		{name: "wrong type", body: `{"noAutoDetect": "yes"}`, wantErr: ErrInvalidPatch},
		{name: "not an object", body: `["x"]`, wantErr: ErrInvalidPatch},
		{name: "malformed", body: `{"smartName":`, wantErr: ErrInvalidPatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePatch([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodePatch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePatch() error = %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestClearPatch(t *testing.T) {
	p := ClearPatch()
	if p.IsEmpty() {
		t.Fatal("ClearPatch() is empty")
	}
	if !p.SmartName.IsNull() || !p.ByON.IsNull() || !p.SmartType.IsNull() || !p.NoAutoDetect.IsNull() {
		t.Errorf("ClearPatch() = %+v, want every field null", p)
	}
}
