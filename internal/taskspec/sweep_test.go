package taskspec

import (
	"slices"
	"testing"

	"audiocloud/internal/ids"
)

// graph builds every node kind with connections touching each of them.
func graph(t *testing.T) *TaskSpec {
	t.Helper()
	spec := New()
	mustModify(t, spec, AddTrack{TrackID: "t1", Channels: ChannelsStereo})
	mustModify(t, spec, AddMixer{MixerID: "m1", Spec: MixerNode{InputChannels: 4, OutputChannels: 2}})
	mustModify(t, spec, AddFixedInstance{FixedID: "f1", Spec: FixedInstanceNode{InstanceID: stereoModel.Instance(1)}})
	mustModify(t, spec, AddDynamicInstance{DynamicID: "d1", Spec: DynamicInstanceNode{ModelID: stereoModel}})
	conns := []AddConnection{
		{ConnectionID: "t-m", From: TrackOutput("t1"), To: MixerInput("m1"), FromChannels: Stereo(0), ToChannels: Stereo(0)},
		{ConnectionID: "m-f", From: MixerOutput("m1"), To: FixedInstanceInput("f1"), FromChannels: Stereo(0), ToChannels: Stereo(0)},
		{ConnectionID: "f-d", From: FixedInstanceOutput("f1"), To: DynamicInstanceInput("d1"), FromChannels: Stereo(0), ToChannels: Stereo(0)},
		{ConnectionID: "d-m", From: DynamicInstanceOutput("d1"), To: MixerInput("m1"), FromChannels: Stereo(0), ToChannels: Stereo(2)},
		{ConnectionID: "t-d", From: TrackOutput("t1"), To: DynamicInstanceInput("d1"), FromChannels: Mono(0), ToChannels: Mono(1)},
	}
	for _, c := range conns {
		mustModify(t, spec, c)
	}
	return spec
}

func TestDeleteSweepsEveryPad(t *testing.T) {
	tests := []struct {
		op      Modification
		ref     NodeRef
		removed []ids.NodeConnectionID
	}{
		{DeleteTrack{TrackID: "t1"}, NodeRef{Kind: NodeTrack, ID: "t1"}, []ids.NodeConnectionID{"t-d", "t-m"}},
		{DeleteMixer{MixerID: "m1"}, NodeRef{Kind: NodeMixer, ID: "m1"}, []ids.NodeConnectionID{"d-m", "m-f", "t-m"}},
		{DeleteFixedInstance{FixedID: "f1"}, NodeRef{Kind: NodeFixedInstance, ID: "f1"}, []ids.NodeConnectionID{"f-d", "m-f"}},
		{DeleteDynamicInstance{DynamicID: "d1"}, NodeRef{Kind: NodeDynamicInstance, ID: "d1"}, []ids.NodeConnectionID{"d-m", "f-d", "t-d"}},
	}
	for _, tt := range tests {
		t.Run(tt.op.Kind(), func(t *testing.T) {
			spec := graph(t)
			var swept []ids.NodeConnectionID
			mustModify(t, spec, tt.op, WithSweepObserver(func(_ NodePadID, removed []ids.NodeConnectionID) {
				swept = append(swept, removed...)
			}))
			if left := spec.ConnectionsOf(tt.ref); len(left) != 0 {
				t.Fatalf("connections still reference %s: %v", tt.ref, left)
			}
			for _, conn := range spec.Connections {
				for _, pad := range tt.ref.Pads() {
					if conn.References(pad) {
						t.Fatalf("dangling connection on %s", pad)
					}
				}
			}
			slices.Sort(swept)
			if !slices.Equal(swept, tt.removed) {
				t.Fatalf("swept = %v, want %v", swept, tt.removed)
			}
			if len(spec.Connections) != 5-len(tt.removed) {
				t.Fatalf("remaining connections = %d", len(spec.Connections))
			}
		})
	}
}

func TestScenarioDDeleteTrackRemovesConnection(t *testing.T) {
	spec := scenarioB(t)
	mustModify(t, spec, DeleteTrack{TrackID: "t1"})
	if _, ok := spec.Connections["c1"]; ok {
		t.Fatal("c1 survived track deletion")
	}
	expectModifyError(t, spec.Modify(DeleteConnection{ConnectionID: "c1"}), ConnectionDoesNotExist)
}

func TestDeleteConnectionsReferencing(t *testing.T) {
	spec := graph(t)
	removed := spec.DeleteConnectionsReferencing(MixerInput("m1"))
	if !slices.Equal(removed, []ids.NodeConnectionID{"d-m", "t-m"}) {
		t.Fatalf("removed = %v", removed)
	}
	if _, ok := spec.Connections["m-f"]; !ok {
		t.Fatal("sweep of the input pad removed an output pad connection")
	}
	if got := spec.DeleteConnectionsReferencing(MixerInput("m1")); len(got) != 0 {
		t.Fatalf("second sweep removed %v", got)
	}
}
