package model

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	cbor "github.com/fxamacker/cbor/v2"

	"audiocloud/internal/ids"
)

func TestBuiltinChannelCounts(t *testing.T) {
	catalog := Builtin()
	tests := []struct {
		id      string
		in, out int
	}{
		{"distopik/dual_1084", 2, 2},
		{"distopik/summatra", 24, 2},
		{"cockos/eq", 2, 2},
		{"netio/power_pdu_4c", 0, 0},
		{"audio_cloud/insert_1x1", 1, 1},
		{"audio_cloud/insert_24x2", 24, 2},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			id, err := ids.ParseModelID(tt.id)
			if err != nil {
				t.Fatalf("ParseModelID: %v", err)
			}
			in, out, ok := catalog.ChannelCounts(id)
			if !ok {
				t.Fatalf("model %s missing from builtin catalog", tt.id)
			}
			if in != tt.in || out != tt.out {
				t.Fatalf("counts = %d/%d, want %d/%d", in, out, tt.in, tt.out)
			}
		})
	}

	if _, _, ok := catalog.ChannelCounts(ids.NewModelID("nobody", "nothing")); ok {
		t.Fatal("expected unknown model lookup to miss")
	}
}

func TestBuiltinReturnsCopy(t *testing.T) {
	first := Builtin()
	delete(first, ids.NewModelID("cockos", "eq"))
	if _, ok := Builtin()[ids.NewModelID("cockos", "eq")]; !ok {
		t.Fatal("mutating a returned catalog leaked into the builtin set")
	}
}

func TestCatalogFilter(t *testing.T) {
	catalog := Builtin()
	entries := catalog.Filter(Filter{ManufacturerIs: "distopik"})
	if len(entries) != 2 {
		t.Fatalf("distopik models = %d, want 2", len(entries))
	}
	if entries[0].ID.String() != "distopik/dual_1084" || entries[1].ID.String() != "distopik/summatra" {
		t.Fatalf("unexpected order: %s, %s", entries[0].ID, entries[1].ID)
	}

	inserts := catalog.Filter(Filter{ManufacturerIs: "audio_cloud", NameContains: "insert_2"})
	if len(inserts) != 2 {
		t.Fatalf("insert_2 models = %d, want 2", len(inserts))
	}
	if all := catalog.Filter(Filter{}); len(all) != len(catalog) {
		t.Fatalf("empty filter returned %d of %d", len(all), len(catalog))
	}
}

func TestLoadCatalogJSONAndTOML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "models.json")
	jsonDoc := `{"models": {"acme/comp": {"inputs": ["audio:global"], "outputs": ["audio:left", "audio:right"],
		"parameters": {"ratio": {"scope": "global", "values": [[1, 20]]}}}}}`
	if err := os.WriteFile(jsonPath, []byte(jsonDoc), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}
	tomlPath := filepath.Join(dir, "models.toml")
	tomlDoc := `
[models."acme/comp"]
inputs = ["audio:global"]
outputs = ["audio:left", "audio:right"]

[models."acme/comp".parameters.ratio]
scope = "global"
values = [[1, 20]]
`
	if err := os.WriteFile(tomlPath, []byte(tomlDoc), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}

	for _, path := range []string{jsonPath, tomlPath} {
		catalog, err := LoadCatalog(path)
		if err != nil {
			t.Fatalf("LoadCatalog(%s): %v", path, err)
		}
		m, err := catalog.Lookup(ids.NewModelID("acme", "comp"))
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if m.InputCount() != 1 || m.OutputCount() != 2 {
			t.Fatalf("%s: counts %d/%d", path, m.InputCount(), m.OutputCount())
		}
		ratio := m.Parameters["ratio"]
		if !ratio.Allows(Number(4)) || ratio.Allows(Number(40)) {
			t.Fatalf("%s: ratio range not honoured", path)
		}
	}
}

func TestLoadCatalogRejectsBadInput(t *testing.T) {
	if _, err := ParseCatalog([]byte(`{"models": {"no-slash": {"inputs": [], "outputs": []}}}`), FormatJSON); !errors.Is(err, ids.ErrMalformedID) {
		t.Fatalf("expected malformed id error, got %v", err)
	}
	if _, err := ParseCatalog([]byte(`{"models": {"a/b": {"inputs": ["audio:sideways"], "outputs": []}}}`), FormatJSON); err == nil {
		t.Fatal("expected unknown channel to fail")
	}
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}

func TestModelValueWireForms(t *testing.T) {
	values := MultiChannelValue{nil, ptr(Number(-3.5)), ptr(String("fast")), ptr(Bool(true))}
	data, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[null,-3.5,"fast",true]` {
		t.Fatalf("json = %s", data)
	}
	var decoded MultiChannelValue
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(values) {
		t.Fatalf("json round trip = %v", decoded)
	}

	raw, err := cbor.Marshal(values)
	if err != nil {
		t.Fatalf("cbor marshal: %v", err)
	}
	var fromCBOR MultiChannelValue
	if err := cbor.Unmarshal(raw, &fromCBOR); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if !fromCBOR.Equal(values) {
		t.Fatalf("cbor round trip = %v", fromCBOR)
	}
}

func TestMultiChannelJoin(t *testing.T) {
	base := Uniform(2, Number(0))
	joined := base.Join(MultiChannelValue{nil, ptr(Number(6)), ptr(Number(9))})
	want := MultiChannelValue{ptr(Number(0)), ptr(Number(6)), ptr(Number(9))}
	if !joined.Equal(want) {
		t.Fatalf("join = %v", joined)
	}
	if len(base) != 2 || *base[1] != Number(0) {
		t.Fatal("join mutated its receiver")
	}
	if single := Single(2, Bool(true)); len(single) != 3 || single[0] != nil || *single[2] != Bool(true) {
		t.Fatalf("single = %v", single)
	}
}

func TestCheckParameter(t *testing.T) {
	dual, err := Builtin().Lookup(ids.NewModelID("distopik", "dual_1084"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if err := dual.CheckParameter("input_gain", MultiChannelValue{ptr(Number(5)), ptr(Bool(false))}); err != nil {
		t.Fatalf("valid gain rejected: %v", err)
	}
	if err := dual.CheckParameter("input_gain", Single(0, Number(7))); !errors.Is(err, ErrParameterValue) {
		t.Fatalf("expected out of range, got %v", err)
	}
	if err := dual.CheckParameter("input_gain", Uniform(3, Number(0))); !errors.Is(err, ErrParameterValue) {
		t.Fatalf("expected scope overflow, got %v", err)
	}
	if err := dual.CheckParameter("nope", nil); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("expected unknown parameter, got %v", err)
	}
}

func ptr(v ModelValue) *ModelValue { return &v }
