package taskspec

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"audiocloud/internal/ids"
	"audiocloud/internal/model"
)

func TestAddNodeTwiceIsRejectedWithoutChange(t *testing.T) {
	tests := []struct {
		name string
		op   Modification
		want ModifyErrorType
	}{
		{"track", AddTrack{TrackID: "t1", Channels: ChannelsMono}, TrackExists},
		{"mixer", AddMixer{MixerID: "m1", Spec: MixerNode{InputChannels: 2, OutputChannels: 2}}, MixerExists},
		{"fixed", AddFixedInstance{FixedID: "f1", Spec: FixedInstanceNode{InstanceID: monoInFixedID}}, FixedInstanceExists},
		{"dynamic", AddDynamicInstance{DynamicID: "d1", Spec: DynamicInstanceNode{ModelID: stereoModel}}, DynamicInstanceExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := New()
			mustModify(t, spec, tt.op)
			before := spec.Clone()
			for range 2 {
				err := spec.Modify(tt.op)
				expectModifyError(t, err, tt.want)
				if !errors.Is(err, ErrExists) {
					t.Fatalf("expected ErrExists, got %v", err)
				}
				if !spec.Equal(before) {
					t.Fatal("spec changed after rejected add")
				}
			}
		})
	}
}

func TestDeleteMissingNode(t *testing.T) {
	tests := []struct {
		op   Modification
		want ModifyErrorType
	}{
		{DeleteTrack{TrackID: "x"}, TrackDoesNotExist},
		{DeleteMixer{MixerID: "x"}, MixerDoesNotExist},
		{DeleteFixedInstance{FixedID: "x"}, FixedInstanceDoesNotExist},
		{DeleteDynamicInstance{DynamicID: "x"}, DynamicInstanceDoesNotExist},
		{DeleteConnection{ConnectionID: "x"}, ConnectionDoesNotExist},
		{SetConnectionParameterValues{ConnectionID: "x"}, ConnectionDoesNotExist},
		{SetDynamicInstanceParameterValues{DynamicID: "x"}, DynamicInstanceDoesNotExist},
		{DeleteTrackMedia{TrackID: "x", MediaID: "m"}, TrackDoesNotExist},
		{UpdateTrackMedia{TrackID: "x", MediaID: "m"}, TrackDoesNotExist},
		{AddTrackMedia{TrackID: "x", MediaID: "m"}, TrackDoesNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.op.Kind(), func(t *testing.T) {
			spec := scenarioB(t)
			before := spec.Clone()
			err := spec.Modify(tt.op)
			modErr := expectModifyError(t, err, tt.want)
			if !errors.Is(err, ErrDoesNotExist) {
				t.Fatalf("expected ErrDoesNotExist, got %v", err)
			}
			if modErr.ErrorKind() != "not_found" {
				t.Fatalf("ErrorKind = %s", modErr.ErrorKind())
			}
			if !spec.Equal(before) {
				t.Fatal("spec changed after rejected operation")
			}
		})
	}
}

func TestScenarioESetFixedParametersOnMissingInstance(t *testing.T) {
	spec := scenarioB(t)
	before := spec.Clone()
	err := spec.Modify(SetFixedInstanceParameterValues{
		FixedID: "nope",
		Values:  InstanceParameters{"gain": model.Single(0, model.Number(3))},
	})
	modErr := expectModifyError(t, err, FixedInstanceDoesNotExist)
	if modErr.NodeID != "nope" {
		t.Fatalf("node id = %q", modErr.NodeID)
	}
	if !spec.Equal(before) {
		t.Fatal("spec changed")
	}
}

func TestTrackMediaLifecycle(t *testing.T) {
	spec := New()
	mustModify(t, spec, AddTrack{TrackID: "t1", Channels: ChannelsStereo})
	media := TrackMedia{
		Channels:        ChannelsStereo,
		Format:          FormatFLAC,
		MediaSegment:    TimeSegment{Start: 0, Length: 10},
		TimelineSegment: TimeSegment{Start: 5, Length: 10},
		ObjectID:        "obj-1",
	}
	mustModify(t, spec, AddTrackMedia{TrackID: "t1", MediaID: "a", Spec: media})

	err := spec.Modify(AddTrackMedia{TrackID: "t1", MediaID: "a", Spec: media})
	modErr := expectModifyError(t, err, MediaExists)
	if modErr.MediaID != "a" || modErr.NodeID != "t1" {
		t.Fatalf("unexpected error fields %+v", modErr)
	}

	newObject := ids.MediaObjectID("obj-2")
	mustModify(t, spec, UpdateTrackMedia{TrackID: "t1", MediaID: "a", Update: TrackMediaUpdate{ObjectID: &newObject}})
	got := spec.Tracks["t1"].Media["a"]
	if got.ObjectID != "obj-2" {
		t.Fatalf("object id = %s", got.ObjectID)
	}
	if got.TimelineSegment != media.TimelineSegment || got.Format != FormatFLAC {
		t.Fatal("update touched fields it did not set")
	}

	expectModifyError(t, spec.Modify(UpdateTrackMedia{TrackID: "t1", MediaID: "zz"}), MediaDoesNotExist)
	mustModify(t, spec, DeleteTrackMedia{TrackID: "t1", MediaID: "a"})
	expectModifyError(t, spec.Modify(DeleteTrackMedia{TrackID: "t1", MediaID: "a"}), MediaDoesNotExist)
}

func TestAddConnectionPolarity(t *testing.T) {
	sources := []NodePadID{MixerOutput("m1"), FixedInstanceOutput("f1"), DynamicInstanceOutput("d1"), TrackOutput("t1")}
	destinations := []NodePadID{MixerInput("m1"), FixedInstanceInput("f1"), DynamicInstanceInput("d1")}

	for _, from := range append(append([]NodePadID{}, sources...), destinations...) {
		for _, to := range append(append([]NodePadID{}, sources...), destinations...) {
			spec := New()
			err := spec.Modify(AddConnection{ConnectionID: "c", From: from, To: to, FromChannels: Mono(0), ToChannels: Mono(0)})
			wantOK := from.IsOutput() && to.IsInput()
			if wantOK {
				if err != nil {
					t.Fatalf("%s -> %s: %v", from, to, err)
				}
				conn := spec.Connections["c"]
				if !conn.From.IsOutput() || !conn.To.IsInput() {
					t.Fatalf("stored connection has wrong polarity: %+v", conn)
				}
				continue
			}
			modErr := expectModifyError(t, err, ConnectionMalformed)
			if modErr.Message == "" || !errors.Is(err, ErrMalformed) {
				t.Fatalf("malformed error lacks reason: %+v", modErr)
			}
			if len(spec.Connections) != 0 {
				t.Fatal("malformed connection was stored")
			}
		}
	}
}

func TestAddConnectionExists(t *testing.T) {
	spec := scenarioB(t)
	err := spec.Modify(AddConnection{ConnectionID: "c1", From: TrackOutput("t1"), To: MixerInput("m1")})
	expectModifyError(t, err, ConnectionExists)
}

func TestSetConnectionParameterValuesOnlyTouchesPresentFields(t *testing.T) {
	spec := scenarioB(t)
	pan := -0.5
	mustModify(t, spec, SetConnectionParameterValues{ConnectionID: "c1", Values: ConnectionValues{Pan: &pan}})
	conn := spec.Connections["c1"]
	if conn.Pan != -0.5 || conn.Volume != 1.0 {
		t.Fatalf("volume/pan = %v/%v", conn.Volume, conn.Pan)
	}
}

func TestSetInstanceParameterValuesMerges(t *testing.T) {
	spec := New()
	mustModify(t, spec, AddDynamicInstance{DynamicID: "d1", Spec: DynamicInstanceNode{
		ModelID:    stereoModel,
		Parameters: InstanceParameters{"low_gain": model.Single(0, model.Number(1)), "low_freq": model.Single(0, model.Number(100))},
	}})
	mustModify(t, spec, SetDynamicInstanceParameterValues{DynamicID: "d1", Values: InstanceParameters{
		"low_gain": model.Uniform(2, model.Number(-3)),
		"bypass":   model.Single(0, model.Bool(true)),
	}})
	params := spec.Dynamic["d1"].Parameters
	if len(params) != 3 {
		t.Fatalf("parameters = %d, want 3", len(params))
	}
	if !params["low_gain"].Equal(model.Uniform(2, model.Number(-3))) {
		t.Fatalf("low_gain not overwritten: %v", params["low_gain"])
	}
	if !params["low_freq"].Equal(model.Single(0, model.Number(100))) {
		t.Fatal("untouched key was changed")
	}

	mustModify(t, spec, AddFixedInstance{FixedID: "f1", Spec: FixedInstanceNode{InstanceID: monoInFixedID, Wet: 1}})
	mustModify(t, spec, SetFixedInstanceParameterValues{FixedID: "f1", Values: InstanceParameters{"gain": model.Single(0, model.Number(2))}})
	if got := spec.Fixed["f1"].Parameters["gain"]; !got.Equal(model.Single(0, model.Number(2))) {
		t.Fatalf("fixed gain = %v", got)
	}
}

func TestAddedNodesDoNotAliasCallerMaps(t *testing.T) {
	params := InstanceParameters{"gain": model.Single(0, model.Number(1))}
	spec := New()
	mustModify(t, spec, AddFixedInstance{FixedID: "f1", Spec: FixedInstanceNode{InstanceID: monoInFixedID, Parameters: params}})
	params["gain"] = model.Single(0, model.Number(9))
	if got := spec.Fixed["f1"].Parameters["gain"]; !got.Equal(model.Single(0, model.Number(1))) {
		t.Fatal("caller map mutation leaked into the spec")
	}
}

func TestModifyZeroValueSpec(t *testing.T) {
	var spec TaskSpec
	before, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rejected := []Modification{
		DeleteTrack{TrackID: "nope"},
		DeleteConnection{ConnectionID: "nope"},
		SetDynamicInstanceParameterValues{DynamicID: "nope"},
		AddTrack{TrackID: "t0", Channels: "quad"},
		AddConnection{ConnectionID: "c", From: MixerInput("m1"), To: MixerInput("m2")},
	}
	for _, op := range rejected {
		if err := spec.Modify(op); err == nil {
			t.Fatalf("%s: expected error", op.Kind())
		}
		if !reflect.DeepEqual(spec, TaskSpec{}) {
			t.Fatalf("%s: rejected operation changed the spec: %+v", op.Kind(), spec)
		}
	}
	after, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("encoding changed from %s to %s", before, after)
	}

	if err := spec.Modify(AddTrack{TrackID: "t1", Channels: ChannelsMono}); err != nil {
		t.Fatalf("zero value spec rejected modification: %v", err)
	}
	if spec.Mixers != nil {
		t.Fatal("untouched tables should stay unallocated")
	}
	if err := spec.Modify(nil); err == nil {
		t.Fatal("expected nil operation to fail")
	}
}

func TestAddTrackRejectsUnknownChannels(t *testing.T) {
	spec := New()
	err := spec.Modify(AddTrack{TrackID: "t1"})
	modErr := expectModifyError(t, err, TrackMalformed)
	if modErr.NodeID != "t1" || !errors.Is(err, ErrMalformed) {
		t.Fatalf("unexpected error %+v", modErr)
	}
	if _, ok := spec.Tracks["t1"]; ok {
		t.Fatal("malformed track was stored")
	}
}

func TestPermissions(t *testing.T) {
	tests := map[string]Permission{
		AddTrack{}.Kind():                        PermissionStructure,
		AddConnection{}.Kind():                   PermissionStructure,
		UpdateTrackMedia{}.Kind():                PermissionMedia,
		SetConnectionParameterValues{}.Kind():    PermissionParameters,
		SetFixedInstanceParameterValues{}.Kind(): PermissionParameters,
	}
	ops := []Modification{AddTrack{}, AddConnection{}, UpdateTrackMedia{}, SetConnectionParameterValues{}, SetFixedInstanceParameterValues{}}
	for _, op := range ops {
		if got := op.Permission(); got != tests[op.Kind()] {
			t.Fatalf("%s permission = %s, want %s", op.Kind(), got, tests[op.Kind()])
		}
	}
	if len(Kinds()) != 16 {
		t.Fatalf("kinds = %d, want 16", len(Kinds()))
	}
}
