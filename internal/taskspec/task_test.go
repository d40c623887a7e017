package taskspec

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	cbor "github.com/fxamacker/cbor/v2"

	"audiocloud/internal/ids"
)

func createRequest() CreateTask {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return CreateTask{
		Domain: "studio-a",
		Time:   TimeRange{From: start, To: start.Add(time.Hour)},
		Tracks: map[ids.TrackNodeID]TrackNode{"t1": {Channels: ChannelsStereo, Media: map[ids.TrackMediaID]TrackMedia{
			"a": {Channels: ChannelsStereo, Format: FormatWave, ObjectID: "obj-1"},
			"b": {Channels: ChannelsMono, Format: FormatMP3, ObjectID: "obj-2"},
		}}},
		Mixers: map[ids.MixerNodeID]MixerNode{"m1": {InputChannels: 2, OutputChannels: 2}},
		Fixed:  map[ids.FixedInstanceNodeID]FixedInstanceNode{"f1": {InstanceID: monoInFixedID}},
		Connections: map[ids.NodeConnectionID]NodeConnection{
			"c1": {From: TrackOutput("t1"), To: MixerInput("m1"), FromChannels: Stereo(0), ToChannels: Stereo(0), Volume: 1},
		},
		Security: map[ids.SecureKey]TaskPermissions{"owner": FullPermissions(), "guest": {Media: true}},
	}
}

func TestNewTaskCopiesRequest(t *testing.T) {
	req := createRequest()
	task := NewTask(req)
	if task.Version != 0 || task.DomainID != "studio-a" {
		t.Fatalf("task = %+v", task)
	}
	if err := task.Spec.Validate(testCatalog); err != nil {
		t.Fatalf("validate: %v", err)
	}
	req.Mixers["m2"] = MixerNode{}
	if _, ok := task.Spec.Mixers["m2"]; ok {
		t.Fatal("task aliases the request maps")
	}
	if got := task.Spec.MediaObjectIDs(); !slices.Equal(got, []ids.MediaObjectID{"obj-1", "obj-2"}) {
		t.Fatalf("media objects = %v", got)
	}
	if got := task.Spec.FixedInstanceIDs(); len(got) != 1 || got[0] != monoInFixedID {
		t.Fatalf("fixed instance ids = %v", got)
	}
	if id, ok := task.Spec.FixedInstanceNodeFor(monoInFixedID); !ok || id != "f1" {
		t.Fatalf("FixedInstanceNodeFor = %q, %v", id, ok)
	}
	if !task.Spec.IsConnected(TrackOutput("t1"), MixerInput("m1")) || task.Spec.IsConnected(MixerInput("m1"), TrackOutput("t1")) {
		t.Fatal("IsConnected mismatch")
	}
}

func TestTimeRangeValidate(t *testing.T) {
	req := createRequest()
	if err := req.Time.Validate(); err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	backwards := TimeRange{From: req.Time.To, To: req.Time.From}
	if err := backwards.Validate(); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestApplyTaskChanges(t *testing.T) {
	task := NewTask(createRequest())
	changes := []ModifyTask{
		SpecChange{Spec: Change{Modification: AddMixer{MixerID: "m2", Spec: MixerNode{InputChannels: 2, OutputChannels: 2}}}},
		SetSecurity{Key: "ops", Security: TaskPermissions{Parameters: true}},
		RevokeSecurity{Key: "guest"},
	}
	if err := ApplyTaskBatch(task, changes, BatchOptions{Atomic: true}); err != nil {
		t.Fatalf("ApplyTaskBatch: %v", err)
	}
	if _, ok := task.Spec.Mixers["m2"]; !ok {
		t.Fatal("spec change not applied")
	}
	if _, ok := task.Security["guest"]; ok {
		t.Fatal("guest not revoked")
	}
	if !task.Security["ops"].Can(PermissionParameters) || task.Security["ops"].Can(PermissionStructure) {
		t.Fatalf("ops permissions = %+v", task.Security["ops"])
	}

	before := task.Clone()
	err := ApplyTaskBatch(task, []ModifyTask{
		RevokeSecurity{Key: "owner"},
		SpecChange{Spec: Change{Modification: DeleteMixer{MixerID: "nope"}}},
	}, BatchOptions{Atomic: true})
	var batchErr *BatchError
	if !errors.As(err, &batchErr) || batchErr.Index != 1 || batchErr.Kind != "delete_mixer" {
		t.Fatalf("batch error = %v", err)
	}
	if _, ok := task.Security["owner"]; !ok {
		t.Fatal("atomic task batch did not roll back security")
	}
	if !task.Spec.Equal(&before.Spec) {
		t.Fatal("atomic task batch changed the spec")
	}
}

func TestGenerateChanges(t *testing.T) {
	from := NewTask(createRequest())
	to := from.Clone()
	to.Security["guest"] = TaskPermissions{Media: true, Audio: true}
	to.Security["new"] = TaskPermissions{Transport: true}
	delete(to.Security, "owner")

	changes := from.GenerateChanges(to)
	got := make([]string, len(changes))
	for i, c := range changes {
		got[i] = c.Kind()
	}
	want := []string{"set_security", "set_security", "revoke_security"}
	if !slices.Equal(got, want) {
		t.Fatalf("changes = %v, want %v", got, want)
	}
	for _, c := range changes {
		if err := from.ApplyChange(c); err != nil {
			t.Fatalf("ApplyChange: %v", err)
		}
	}
	if len(from.Security) != len(to.Security) {
		t.Fatalf("security after changes = %v", from.Security)
	}
	for key, perms := range to.Security {
		if from.Security[key] != perms {
			t.Fatalf("key %s = %+v, want %+v", key, from.Security[key], perms)
		}
	}
}

func TestTaskChangeWireForm(t *testing.T) {
	changes := []TaskChange{
		{ModifyTask: SpecChange{Spec: Change{Modification: DeleteTrack{TrackID: "t1"}}}},
		{ModifyTask: SetSecurity{Key: "k", Security: FullPermissions()}},
		{ModifyTask: RevokeSecurity{Key: "k"}},
	}
	data, err := json.Marshal(changes[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"spec":{"spec":{"delete_track":{"track_id":"t1"}}}}` {
		t.Fatalf("json = %s", data)
	}

	raw, err := cbor.Marshal(changes)
	if err != nil {
		t.Fatalf("cbor marshal: %v", err)
	}
	var decoded []TaskChange
	if err := cbor.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	got := TaskChanges(decoded)
	if len(got) != 3 || got[0].Kind() != "delete_track" || got[1].Kind() != "set_security" || got[2].Kind() != "revoke_security" {
		t.Fatalf("decoded = %#v", got)
	}
	if got[1].(SetSecurity).Security != FullPermissions() {
		t.Fatal("permissions lost in transit")
	}
}
