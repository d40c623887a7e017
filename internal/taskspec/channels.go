package taskspec

import (
	"encoding/json"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
)

// MediaChannels is the channel layout of a track or media item.
type MediaChannels string

const (
	ChannelsMono   MediaChannels = "mono"
	ChannelsStereo MediaChannels = "stereo"
)

// NumChannels returns 1 for mono and 2 for stereo.
func (c MediaChannels) NumChannels() int {
	if c == ChannelsStereo {
		return 2
	}
	return 1
}

func (c MediaChannels) valid() bool {
	return c == ChannelsMono || c == ChannelsStereo
}

func (c *MediaChannels) UnmarshalText(text []byte) error {
	parsed := MediaChannels(text)
	if !parsed.valid() {
		return fmt.Errorf("media channels %q: expected mono or stereo", text)
	}
	*c = parsed
	return nil
}

func (c *MediaChannels) UnmarshalCBOR(data []byte) error {
	var raw string
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	return c.UnmarshalText([]byte(raw))
}

// MaskKind distinguishes mono and stereo channel masks.
type MaskKind string

const (
	MaskMono   MaskKind = "mono"
	MaskStereo MaskKind = "stereo"
)

// ChannelMask selects one channel (mono) or two adjacent channels (stereo)
// starting at a 0-based index. On the wire it is {"mono": i} or {"stereo": i}.
type ChannelMask struct {
	Kind  MaskKind
	Index int
}

// Mono selects channel i.
func Mono(i int) ChannelMask { return ChannelMask{Kind: MaskMono, Index: i} }

// Stereo selects channels i and i+1.
func Stereo(i int) ChannelMask { return ChannelMask{Kind: MaskStereo, Index: i} }

// Count returns how many channels the mask covers.
func (m ChannelMask) Count() int {
	if m.Kind == MaskStereo {
		return 2
	}
	return 1
}

// IsSubsetOf reports whether every selected channel lies in [0, count).
func (m ChannelMask) IsSubsetOf(count int) bool {
	if m.Index < 0 || m.Index >= count {
		return false
	}
	return m.Count() <= count-m.Index
}

func (m ChannelMask) String() string {
	return fmt.Sprintf("%s(%d)", m.Kind, m.Index)
}

func (m ChannelMask) wire() (map[MaskKind]int, error) {
	if m.Kind != MaskMono && m.Kind != MaskStereo {
		return nil, fmt.Errorf("channel mask: unknown kind %q", m.Kind)
	}
	return map[MaskKind]int{m.Kind: m.Index}, nil
}

func maskFromWire(raw map[MaskKind]int) (ChannelMask, error) {
	if len(raw) != 1 {
		return ChannelMask{}, fmt.Errorf("channel mask: expected exactly one of mono or stereo, got %d keys", len(raw))
	}
	for kind, index := range raw {
		if kind != MaskMono && kind != MaskStereo {
			return ChannelMask{}, fmt.Errorf("channel mask: unknown kind %q", kind)
		}
		if index < 0 {
			return ChannelMask{}, fmt.Errorf("channel mask: negative index %d", index)
		}
		return ChannelMask{Kind: kind, Index: index}, nil
	}
	return ChannelMask{}, nil
}

func (m ChannelMask) MarshalJSON() ([]byte, error) {
	raw, err := m.wire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

func (m *ChannelMask) UnmarshalJSON(data []byte) error {
	var raw map[MaskKind]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("channel mask: %w", err)
	}
	parsed, err := maskFromWire(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m ChannelMask) MarshalCBOR() ([]byte, error) {
	raw, err := m.wire()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(raw)
}

func (m *ChannelMask) UnmarshalCBOR(data []byte) error {
	var raw map[MaskKind]int
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("channel mask: %w", err)
	}
	parsed, err := maskFromWire(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
