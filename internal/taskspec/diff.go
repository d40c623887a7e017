package taskspec

import (
	"fmt"
	"maps"
	"slices"

	"audiocloud/internal/ids"
	"audiocloud/internal/model"
)

// Diff returns modifications that turn from into to. Every step is simulated
// on a clone of from, so the list is applicable in order. Nodes whose
// structure changed are deleted and re-added; the connections that sweep
// removes are re-added afterwards when to still has them. It fails only when
// to holds something no modification can produce, such as a connection with
// the wrong pad polarity.
func Diff(from, to *TaskSpec) ([]Modification, error) {
	d := &differ{sim: from.Clone(), to: to}
	d.dropConnections()
	d.syncTracks()
	d.syncMixers()
	d.syncFixed()
	d.syncDynamic()
	d.addConnections()
	if d.err != nil {
		return nil, d.err
	}
	return d.ops, nil
}

type differ struct {
	sim *TaskSpec
	to  *TaskSpec
	ops []Modification
	err error
}

func (d *differ) emit(op Modification) {
	if d.err != nil {
		return
	}
	if err := d.sim.Modify(op); err != nil {
		d.err = fmt.Errorf("diff: %s: %w", op.Kind(), err)
		return
	}
	d.ops = append(d.ops, op)
}

func sameRoute(a, b NodeConnection) bool {
	return a.From == b.From && a.To == b.To && a.FromChannels == b.FromChannels && a.ToChannels == b.ToChannels
}

func (d *differ) dropConnections() {
	for _, id := range d.sim.ConnectionIDs() {
		next, ok := d.to.Connections[id]
		if !ok || !sameRoute(d.sim.Connections[id], next) {
			d.emit(DeleteConnection{ConnectionID: id})
		}
	}
}

func (d *differ) syncTracks() {
	for _, id := range slices.Sorted(maps.Keys(d.sim.Tracks)) {
		prev := d.sim.Tracks[id]
		next, ok := d.to.Tracks[id]
		switch {
		case !ok:
			d.emit(DeleteTrack{TrackID: id})
		case prev.Channels != next.Channels:
			d.emit(DeleteTrack{TrackID: id})
			d.addTrack(id, next)
		default:
			d.syncMedia(id, prev.Media, next.Media)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(d.to.Tracks)) {
		if _, ok := d.sim.Tracks[id]; !ok {
			d.addTrack(id, d.to.Tracks[id])
		}
	}
}

func (d *differ) addTrack(id ids.TrackNodeID, track TrackNode) {
	d.emit(AddTrack{TrackID: id, Channels: track.Channels})
	for _, mediaID := range slices.Sorted(maps.Keys(track.Media)) {
		d.emit(AddTrackMedia{TrackID: id, MediaID: mediaID, Spec: track.Media[mediaID]})
	}
}

func (d *differ) syncMedia(id ids.TrackNodeID, prev, next map[ids.TrackMediaID]TrackMedia) {
	diff := mapChanges(prev, next, func(a, b TrackMedia) bool { return a == b })
	for _, mediaID := range diff.Removed {
		d.emit(DeleteTrackMedia{TrackID: id, MediaID: mediaID})
	}
	for _, mediaID := range slices.Sorted(maps.Keys(diff.Changed)) {
		media := diff.Changed[mediaID]
		d.emit(UpdateTrackMedia{TrackID: id, MediaID: mediaID, Update: TrackMediaUpdate{
			Channels:        &media.Channels,
			MediaSegment:    &media.MediaSegment,
			TimelineSegment: &media.TimelineSegment,
			ObjectID:        &media.ObjectID,
		}})
	}
	for _, mediaID := range slices.Sorted(maps.Keys(diff.Added)) {
		d.emit(AddTrackMedia{TrackID: id, MediaID: mediaID, Spec: diff.Added[mediaID]})
	}
}

func (d *differ) syncMixers() {
	for _, id := range slices.Sorted(maps.Keys(d.sim.Mixers)) {
		next, ok := d.to.Mixers[id]
		if ok && next == d.sim.Mixers[id] {
			continue
		}
		d.emit(DeleteMixer{MixerID: id})
		if ok {
			d.emit(AddMixer{MixerID: id, Spec: next})
		}
	}
	for _, id := range slices.Sorted(maps.Keys(d.to.Mixers)) {
		if _, ok := d.sim.Mixers[id]; !ok {
			d.emit(AddMixer{MixerID: id, Spec: d.to.Mixers[id]})
		}
	}
}

// parameterUpdate returns the values to merge into prev to reach next. It
// reports false when next dropped a key, which merging cannot express.
func parameterUpdate(prev, next InstanceParameters) (InstanceParameters, bool) {
	diff := mapChanges(prev, next, model.MultiChannelValue.Equal)
	if len(diff.Removed) > 0 {
		return nil, false
	}
	update := InstanceParameters{}
	maps.Copy(update, diff.Added)
	maps.Copy(update, diff.Changed)
	return update, true
}

func (d *differ) syncFixed() {
	for _, id := range slices.Sorted(maps.Keys(d.sim.Fixed)) {
		prev := d.sim.Fixed[id]
		next, ok := d.to.Fixed[id]
		if !ok {
			d.emit(DeleteFixedInstance{FixedID: id})
			continue
		}
		if prev.InstanceID == next.InstanceID && prev.Wet == next.Wet {
			if update, ok := parameterUpdate(prev.Parameters, next.Parameters); ok {
				if len(update) > 0 {
					d.emit(SetFixedInstanceParameterValues{FixedID: id, Values: update})
				}
				continue
			}
		}
		d.emit(DeleteFixedInstance{FixedID: id})
		d.emit(AddFixedInstance{FixedID: id, Spec: next})
	}
	for _, id := range slices.Sorted(maps.Keys(d.to.Fixed)) {
		if _, ok := d.sim.Fixed[id]; !ok {
			d.emit(AddFixedInstance{FixedID: id, Spec: d.to.Fixed[id]})
		}
	}
}

func (d *differ) syncDynamic() {
	for _, id := range slices.Sorted(maps.Keys(d.sim.Dynamic)) {
		prev := d.sim.Dynamic[id]
		next, ok := d.to.Dynamic[id]
		if !ok {
			d.emit(DeleteDynamicInstance{DynamicID: id})
			continue
		}
		if prev.ModelID == next.ModelID {
			if update, ok := parameterUpdate(prev.Parameters, next.Parameters); ok {
				if len(update) > 0 {
					d.emit(SetDynamicInstanceParameterValues{DynamicID: id, Values: update})
				}
				continue
			}
		}
		d.emit(DeleteDynamicInstance{DynamicID: id})
		d.emit(AddDynamicInstance{DynamicID: id, Spec: next})
	}
	for _, id := range slices.Sorted(maps.Keys(d.to.Dynamic)) {
		if _, ok := d.sim.Dynamic[id]; !ok {
			d.emit(AddDynamicInstance{DynamicID: id, Spec: d.to.Dynamic[id]})
		}
	}
}

func (d *differ) addConnections() {
	for _, id := range slices.Sorted(maps.Keys(d.to.Connections)) {
		next := d.to.Connections[id]
		prev, ok := d.sim.Connections[id]
		if !ok {
			d.emit(AddConnection{
				ConnectionID: id,
				From:         next.From,
				To:           next.To,
				FromChannels: next.FromChannels,
				ToChannels:   next.ToChannels,
				Volume:       next.Volume,
				Pan:          next.Pan,
			})
			continue
		}
		var values ConnectionValues
		if prev.Volume != next.Volume {
			values.Volume = &next.Volume
		}
		if prev.Pan != next.Pan {
			values.Pan = &next.Pan
		}
		if values.Volume != nil || values.Pan != nil {
			d.emit(SetConnectionParameterValues{ConnectionID: id, Values: values})
		}
	}
}
