package ids

import (
	"encoding/json"
	"errors"
	"testing"

	cbor "github.com/fxamacker/cbor/v2"
)

func TestParseModelID(t *testing.T) {
	id, err := ParseModelID("distopik/dual_1084")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Manufacturer != "distopik" || id.Name != "dual_1084" {
		t.Fatalf("unexpected id: %+v", id)
	}
	for _, raw := range []string{"", "distopik", "distopik/", "a/b/c"} {
		if _, err := ParseModelID(raw); !errors.Is(err, ErrMalformedID) {
			t.Fatalf("expected ErrMalformedID for %q, got %v", raw, err)
		}
	}
}

func TestFixedInstanceIDModel(t *testing.T) {
	id, err := ParseFixedInstanceID("distopik/summatra/3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Instance != 3 {
		t.Fatalf("expected instance 3, got %d", id.Instance)
	}
	if got := id.ModelID(); got != NewModelID("distopik", "summatra") {
		t.Fatalf("unexpected model id %s", got)
	}
	if got := NewModelID("distopik", "summatra").Instance(3); got != id {
		t.Fatalf("Instance mismatch: %s", got)
	}
	if _, err := ParseFixedInstanceID("distopik/summatra/x"); !errors.Is(err, ErrMalformedID) {
		t.Fatalf("expected ErrMalformedID, got %v", err)
	}
}

func TestCompositeIDsAsMapKeys(t *testing.T) {
	in := map[ModelID]int{NewModelID("cockos", "eq"): 2}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"cockos/eq":2}` {
		t.Fatalf("unexpected json %s", data)
	}
	var out map[ModelID]int
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out[NewModelID("cockos", "eq")] != 2 {
		t.Fatalf("round trip lost key: %#v", out)
	}
}

func TestFixedInstanceIDCBOR(t *testing.T) {
	id := NewModelID("distopik", "dual_1084").Instance(1)
	data, err := cbor.Marshal(id)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out FixedInstanceID
	if err := cbor.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != id {
		t.Fatalf("round trip mismatch: %s != %s", out, id)
	}
}

func TestParseTaskID(t *testing.T) {
	id := NewTaskID()
	parsed, err := ParseTaskID(" " + id.String() + " ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected %s, got %s", id, parsed)
	}
	if _, err := ParseTaskID("not-a-task"); err == nil {
		t.Fatal("expected error for malformed task id")
	}
}
