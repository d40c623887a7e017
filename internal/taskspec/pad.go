package taskspec

import (
	"fmt"
	"strings"

	cbor "github.com/fxamacker/cbor/v2"

	"audiocloud/internal/ids"
)

// NodeKind names one of the four node tables.
type NodeKind int

const (
	NodeTrack NodeKind = iota
	NodeMixer
	NodeFixedInstance
	NodeDynamicInstance
)

func (k NodeKind) String() string {
	switch k {
	case NodeTrack:
		return "track"
	case NodeMixer:
		return "mixer"
	case NodeFixedInstance:
		return "fixed_instance"
	case NodeDynamicInstance:
		return "dynamic_instance"
	default:
		return fmt.Sprintf("node_kind(%d)", int(k))
	}
}

// NodeRef addresses a node of any kind.
type NodeRef struct {
	Kind NodeKind
	ID   string
}

func (r NodeRef) String() string { return r.Kind.String() + " " + r.ID }

// Pads lists every pad the node owns.
func (r NodeRef) Pads() []NodePadID {
	switch r.Kind {
	case NodeTrack:
		return []NodePadID{{kind: PadTrackOutput, id: r.ID}}
	case NodeMixer:
		return []NodePadID{{kind: PadMixerInput, id: r.ID}, {kind: PadMixerOutput, id: r.ID}}
	case NodeFixedInstance:
		return []NodePadID{{kind: PadFixedInstanceInput, id: r.ID}, {kind: PadFixedInstanceOutput, id: r.ID}}
	case NodeDynamicInstance:
		return []NodePadID{{kind: PadDynamicInstanceInput, id: r.ID}, {kind: PadDynamicInstanceOutput, id: r.ID}}
	default:
		return nil
	}
}

// PadKind is the variant of a NodePadID. Direction is intrinsic to the variant.
type PadKind int

const (
	PadMixerInput PadKind = iota + 1
	PadMixerOutput
	PadFixedInstanceInput
	PadFixedInstanceOutput
	PadDynamicInstanceInput
	PadDynamicInstanceOutput
	PadTrackOutput
)

type padInfo struct {
	prefix string
	dir    string
	node   NodeKind
	output bool
}

var padTable = map[PadKind]padInfo{
	PadMixerInput:            {prefix: "mix", dir: "inp", node: NodeMixer},
	PadMixerOutput:           {prefix: "mix", dir: "out", node: NodeMixer, output: true},
	PadFixedInstanceInput:    {prefix: "fix", dir: "inp", node: NodeFixedInstance},
	PadFixedInstanceOutput:   {prefix: "fix", dir: "out", node: NodeFixedInstance, output: true},
	PadDynamicInstanceInput:  {prefix: "dyn", dir: "inp", node: NodeDynamicInstance},
	PadDynamicInstanceOutput: {prefix: "dyn", dir: "out", node: NodeDynamicInstance, output: true},
	PadTrackOutput:           {prefix: "trk", dir: "out", node: NodeTrack, output: true},
}

// NodePadID addresses the input or output face of a node.
// The text form is "<node>:<dir>:<id>", for example "mix:inp:m1" or "trk:out:t1".
type NodePadID struct {
	kind PadKind
	id   string
}

func MixerInput(id ids.MixerNodeID) NodePadID { return NodePadID{kind: PadMixerInput, id: string(id)} }
func MixerOutput(id ids.MixerNodeID) NodePadID { return NodePadID{kind: PadMixerOutput, id: string(id)} }
func FixedInstanceInput(id ids.FixedInstanceNodeID) NodePadID {
	return NodePadID{kind: PadFixedInstanceInput, id: string(id)}
}
func FixedInstanceOutput(id ids.FixedInstanceNodeID) NodePadID {
	return NodePadID{kind: PadFixedInstanceOutput, id: string(id)}
}
func DynamicInstanceInput(id ids.DynamicInstanceNodeID) NodePadID {
	return NodePadID{kind: PadDynamicInstanceInput, id: string(id)}
}
func DynamicInstanceOutput(id ids.DynamicInstanceNodeID) NodePadID {
	return NodePadID{kind: PadDynamicInstanceOutput, id: string(id)}
}
func TrackOutput(id ids.TrackNodeID) NodePadID { return NodePadID{kind: PadTrackOutput, id: string(id)} }

// Kind returns the pad variant.
func (p NodePadID) Kind() PadKind { return p.kind }

// IsOutput reports whether the pad can be the source of a connection.
func (p NodePadID) IsOutput() bool {
	info, ok := padTable[p.kind]
	return ok && info.output
}

// IsInput reports whether the pad can be the destination of a connection.
func (p NodePadID) IsInput() bool {
	info, ok := padTable[p.kind]
	return ok && !info.output
}

// Node returns the node that owns the pad.
func (p NodePadID) Node() NodeRef {
	return NodeRef{Kind: padTable[p.kind].node, ID: p.id}
}

// IsZero reports whether the pad is unset.
func (p NodePadID) IsZero() bool { return p.kind == 0 }

func (p NodePadID) String() string {
	info, ok := padTable[p.kind]
	if !ok {
		return ""
	}
	return info.prefix + ":" + info.dir + ":" + p.id
}

// ParseNodePadID parses the text form. Everything after the second colon is the node id.
func ParseNodePadID(raw string) (NodePadID, error) {
	prefix, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return NodePadID{}, fmt.Errorf("node pad %q: expected separator ':'", raw)
	}
	dir, id, ok := strings.Cut(rest, ":")
	if !ok {
		return NodePadID{}, fmt.Errorf("node pad %q: expected separator ':'", raw)
	}
	for kind, info := range padTable {
		if info.prefix == prefix && info.dir == dir {
			return NodePadID{kind: kind, id: id}, nil
		}
	}
	return NodePadID{}, fmt.Errorf("node pad %q: unrecognized variant %q, %q", raw, prefix, dir)
}

func (p NodePadID) MarshalText() ([]byte, error) {
	if _, ok := padTable[p.kind]; !ok {
		return nil, fmt.Errorf("node pad: unset variant")
	}
	return []byte(p.String()), nil
}

func (p *NodePadID) UnmarshalText(text []byte) error {
	parsed, err := ParseNodePadID(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p NodePadID) MarshalCBOR() ([]byte, error) {
	text, err := p.MarshalText()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(text))
}

func (p *NodePadID) UnmarshalCBOR(data []byte) error {
	var raw string
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(raw))
}
