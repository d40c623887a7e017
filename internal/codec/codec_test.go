package codec

import (
	"os"
	"path/filepath"
	"testing"

	"audiocloud/internal/ids"
	"audiocloud/internal/taskspec"
)

func TestRegistryLookup(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for key, want := range map[string]string{
		"json":             "application/json",
		"JSON":             "application/json",
		"application/cbor": "application/cbor",
		"cbor":             "application/cbor",
	} {
		c, err := r.Lookup(key)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", key, err)
		}
		if c.ContentType() != want {
			t.Fatalf("Lookup(%q) = %s, want %s", key, c.ContentType(), want)
		}
	}
	if _, err := r.Lookup("msgpack"); err == nil {
		t.Fatal("expected unknown format to fail")
	}
	if r.ForPath("batch.CBOR").ContentType() != "application/cbor" || r.ForPath("spec.json").ContentType() != "application/json" {
		t.Fatal("ForPath picked the wrong codec")
	}
}

func TestChangesRoundTripThroughEveryCodec(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ops := []taskspec.Modification{
		taskspec.AddTrack{TrackID: "t1", Channels: taskspec.ChannelsStereo},
		taskspec.AddMixer{MixerID: "m1", Spec: taskspec.MixerNode{InputChannels: 2, OutputChannels: 2}},
		taskspec.AddConnection{
			ConnectionID: "c1",
			From:         taskspec.TrackOutput("t1"),
			To:           taskspec.MixerInput("m1"),
			FromChannels: taskspec.Stereo(0),
			ToChannels:   taskspec.Stereo(0),
			Volume:       1,
		},
	}
	for _, name := range []string{"json", "cbor"} {
		t.Run(name, func(t *testing.T) {
			c := r.Get(name)
			data, err := c.Marshal(taskspec.Changes(ops))
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded []taskspec.Change
			if err := c.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			spec := taskspec.New()
			if err := taskspec.ApplyBatch(spec, taskspec.Modifications(decoded), taskspec.BatchOptions{}); err != nil {
				t.Fatalf("apply decoded batch: %v", err)
			}
			if !spec.IsConnected(taskspec.TrackOutput("t1"), taskspec.MixerInput("m1")) {
				t.Fatal("decoded batch lost the connection")
			}
		})
	}
}

func TestCBOREncodingIsDeterministic(t *testing.T) {
	c, err := CBOR()
	if err != nil {
		t.Fatalf("CBOR: %v", err)
	}
	spec := taskspec.New()
	for _, id := range []string{"b", "a", "c", "d"} {
		spec.Mixers[ids.MixerNodeID(id)] = taskspec.MixerNode{InputChannels: 1, OutputChannels: 1}
	}
	first, err := c.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for range 10 {
		again, err := c.Marshal(spec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(again) != string(first) {
			t.Fatal("canonical encoding differs between runs")
		}
	}
}

func TestReadFile(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.json")
	doc := `{"tracks": {"t1": {"channels": "mono", "media": {}}}, "connections": {}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var spec taskspec.TaskSpec
	if err := r.ReadFile(path, &spec); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if spec.Tracks["t1"].Channels != taskspec.ChannelsMono {
		t.Fatalf("decoded spec = %+v", spec)
	}
	if err := r.ReadFile(filepath.Join(dir, "missing.json"), &spec); err == nil {
		t.Fatal("expected missing file to fail")
	}
}
