package taskspec

import (
	"errors"
	"testing"

	"audiocloud/internal/ids"
	"audiocloud/internal/model"
)

type fakeCatalog map[ids.ModelID][2]int

func (c fakeCatalog) ChannelCounts(id ids.ModelID) (int, int, bool) {
	counts, ok := c[id]
	return counts[0], counts[1], ok
}

var (
	monoInModel   = ids.NewModelID("acme", "mono_in")
	stereoModel   = ids.NewModelID("acme", "stereo")
	testCatalog   = fakeCatalog{monoInModel: {1, 2}, stereoModel: {2, 2}}
	monoInFixedID = monoInModel.Instance(1)
)

// scenarioB builds track t1 -> mixer m1 with a stereo connection c1.
func scenarioB(t *testing.T) *TaskSpec {
	t.Helper()
	spec := New()
	mustModify(t, spec, AddTrack{TrackID: "t1", Channels: ChannelsStereo})
	mustModify(t, spec, AddMixer{MixerID: "m1", Spec: MixerNode{InputChannels: 2, OutputChannels: 2}})
	mustModify(t, spec, AddConnection{
		ConnectionID: "c1",
		From:         TrackOutput("t1"),
		To:           MixerInput("m1"),
		FromChannels: Stereo(0),
		ToChannels:   Stereo(0),
		Volume:       1.0,
		Pan:          0.0,
	})
	return spec
}

func mustModify(t *testing.T, spec *TaskSpec, op Modification, opts ...ApplyOption) {
	t.Helper()
	if err := spec.Modify(op, opts...); err != nil {
		t.Fatalf("%s: %v", op.Kind(), err)
	}
}

func expectModifyError(t *testing.T, err error, want ModifyErrorType) *ModifyError {
	t.Helper()
	var modErr *ModifyError
	if !errors.As(err, &modErr) {
		t.Fatalf("expected *ModifyError %s, got %v", want, err)
	}
	if modErr.Type != want {
		t.Fatalf("error type = %s, want %s (%v)", modErr.Type, want, err)
	}
	return modErr
}

func number(v float64) *model.ModelValue {
	mv := model.Number(v)
	return &mv
}
