package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"audiocloud/internal/ids"
)

// ControlChannel names the role a model input or output plays.
type ControlChannel string

const (
	ChannelGlobal  ControlChannel = "global"
	ChannelLeft    ControlChannel = "left"
	ChannelRight   ControlChannel = "right"
	ChannelGeneric ControlChannel = "generic"
)

func (c ControlChannel) valid() bool {
	switch c {
	case ChannelGlobal, ChannelLeft, ChannelRight, ChannelGeneric:
		return true
	default:
		return false
	}
}

// InputKind enumerates what a model input accepts.
type InputKind string

const (
	InputAudio     InputKind = "audio"
	InputSidechain InputKind = "sidechain"
	InputMidi      InputKind = "midi"
)

// OutputKind enumerates what a model output produces.
type OutputKind string

const (
	OutputAudio OutputKind = "audio"
	OutputMidi  OutputKind = "midi"
)

// ModelInput describes one input channel. Text form: "audio:left", "sidechain", "midi".
type ModelInput struct {
	Kind    InputKind
	Channel ControlChannel
}

func (i ModelInput) String() string {
	if i.Kind == InputAudio {
		return string(i.Kind) + ":" + string(i.Channel)
	}
	return string(i.Kind)
}

func (i ModelInput) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *ModelInput) UnmarshalText(text []byte) error {
	kind, channel, err := splitChannelKind(string(text))
	if err != nil {
		return fmt.Errorf("model input: %w", err)
	}
	switch InputKind(kind) {
	case InputAudio:
		*i = ModelInput{Kind: InputAudio, Channel: channel}
	case InputSidechain, InputMidi:
		if channel != "" {
			return fmt.Errorf("model input %q: %s takes no channel", text, kind)
		}
		*i = ModelInput{Kind: InputKind(kind)}
	default:
		return fmt.Errorf("model input %q: unknown kind", text)
	}
	return nil
}

// ModelOutput describes one output channel. Text form: "audio:left", "midi".
type ModelOutput struct {
	Kind    OutputKind
	Channel ControlChannel
}

func (o ModelOutput) String() string {
	if o.Kind == OutputAudio {
		return string(o.Kind) + ":" + string(o.Channel)
	}
	return string(o.Kind)
}

func (o ModelOutput) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *ModelOutput) UnmarshalText(text []byte) error {
	kind, channel, err := splitChannelKind(string(text))
	if err != nil {
		return fmt.Errorf("model output: %w", err)
	}
	switch OutputKind(kind) {
	case OutputAudio:
		*o = ModelOutput{Kind: OutputAudio, Channel: channel}
	case OutputMidi:
		if channel != "" {
			return fmt.Errorf("model output %q: midi takes no channel", text)
		}
		*o = ModelOutput{Kind: OutputMidi}
	default:
		return fmt.Errorf("model output %q: unknown kind", text)
	}
	return nil
}

func splitChannelKind(raw string) (string, ControlChannel, error) {
	kind, channel, found := strings.Cut(strings.TrimSpace(raw), ":")
	if !found {
		if kind == "audio" {
			return kind, ChannelGeneric, nil
		}
		return kind, "", nil
	}
	if kind != "audio" {
		return "", "", fmt.Errorf("%q: only audio carries a channel", raw)
	}
	ch := ControlChannel(channel)
	if !ch.valid() {
		return "", "", fmt.Errorf("%q: unknown channel %q", raw, channel)
	}
	return kind, ch, nil
}

// ElementScope says how many values a parameter or report carries.
// Text form: "global", "all_inputs", "all_outputs", or a bare count such as "4".
type ElementScope struct {
	kind  string
	count int
}

var (
	ScopeGlobal     = ElementScope{kind: "global"}
	ScopeAllInputs  = ElementScope{kind: "all_inputs"}
	ScopeAllOutputs = ElementScope{kind: "all_outputs"}
)

// ScopeCount builds a fixed-size scope.
func ScopeCount(n int) ElementScope { return ElementScope{kind: "count", count: n} }

// Len resolves the scope against a model.
func (s ElementScope) Len(m Model) int {
	switch s.kind {
	case "all_inputs":
		return len(m.Inputs)
	case "all_outputs":
		return len(m.Outputs)
	case "count":
		return s.count
	default:
		return 1
	}
}

func (s ElementScope) String() string {
	if s.kind == "count" {
		return strconv.Itoa(s.count)
	}
	if s.kind == "" {
		return ScopeGlobal.kind
	}
	return s.kind
}

func (s ElementScope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ElementScope) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	switch raw {
	case "", "global":
		*s = ScopeGlobal
	case "all_inputs":
		*s = ScopeAllInputs
	case "all_outputs":
		*s = ScopeAllOutputs
	default:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("element scope %q: expected global, all_inputs, all_outputs, or a count", raw)
		}
		*s = ScopeCount(n)
	}
	return nil
}

// ValueOption is either a single allowed value or an inclusive [min, max] range.
type ValueOption struct {
	Value *ModelValue
	Min   *ModelValue
	Max   *ModelValue
}

// SingleOption allows exactly one value.
func SingleOption(v ModelValue) ValueOption { return ValueOption{Value: &v} }

// RangeOption allows every number in [min, max].
func RangeOption(min, max float64) ValueOption {
	lo, hi := Number(min), Number(max)
	return ValueOption{Min: &lo, Max: &hi}
}

// IsRange reports whether the option is a range.
func (o ValueOption) IsRange() bool { return o.Value == nil }

// Allows reports whether v satisfies the option.
func (o ValueOption) Allows(v ModelValue) bool {
	if !o.IsRange() {
		return *o.Value == v
	}
	n, ok := v.Float64()
	if !ok || v.Kind() != KindNumber {
		return false
	}
	lo, okLo := o.Min.Float64()
	hi, okHi := o.Max.Float64()
	return okLo && okHi && n >= lo && n <= hi
}

func (o ValueOption) MarshalJSON() ([]byte, error) {
	if !o.IsRange() {
		return json.Marshal(o.Value)
	}
	return json.Marshal([2]*ModelValue{o.Min, o.Max})
}

func (o *ValueOption) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if pair, ok := raw.([]any); ok {
		if len(pair) != 2 {
			return fmt.Errorf("value option: range needs 2 bounds, got %d", len(pair))
		}
		lo, err := ValueFromAny(pair[0])
		if err != nil {
			return err
		}
		hi, err := ValueFromAny(pair[1])
		if err != nil {
			return err
		}
		if lo.Kind() != KindNumber || hi.Kind() != KindNumber {
			return fmt.Errorf("value option: only numeric ranges are supported")
		}
		*o = ValueOption{Min: &lo, Max: &hi}
		return nil
	}
	v, err := ValueFromAny(raw)
	if err != nil {
		return err
	}
	*o = ValueOption{Value: &v}
	return nil
}

// ModelParameter describes one settable parameter of a model.
type ModelParameter struct {
	Scope  ElementScope  `json:"scope"`
	Unit   string        `json:"unit,omitempty"`
	Role   string        `json:"role,omitempty"`
	Values []ValueOption `json:"values"`
}

// Allows reports whether v matches any of the parameter's options.
func (p ModelParameter) Allows(v ModelValue) bool {
	for _, opt := range p.Values {
		if opt.Allows(v) {
			return true
		}
	}
	return false
}

// ModelReport describes one value a model reports back while running.
type ModelReport struct {
	Scope    ElementScope  `json:"scope"`
	Unit     string        `json:"unit,omitempty"`
	Role     string        `json:"role,omitempty"`
	Values   []ValueOption `json:"values"`
	Public   bool          `json:"public,omitempty"`
	Volatile bool          `json:"volatile,omitempty"`
}

// Model describes a processing unit. Channel counts are len(Inputs) and len(Outputs).
type Model struct {
	Inputs       []ModelInput                       `json:"inputs"`
	Outputs      []ModelOutput                      `json:"outputs"`
	Parameters   map[ids.ParameterID]ModelParameter `json:"parameters,omitempty"`
	Reports      map[ids.ReportID]ModelReport       `json:"reports,omitempty"`
	Resources    map[string]float64                 `json:"resources,omitempty"`
	Media        bool                               `json:"media,omitempty"`
	Capabilities []string                           `json:"capabilities,omitempty"`
}

// InputCount returns the number of input channels.
func (m Model) InputCount() int { return len(m.Inputs) }

// OutputCount returns the number of output channels.
func (m Model) OutputCount() int { return len(m.Outputs) }

// StandardInputs mirrors the platform convention: 1 is global, 2 is left/right,
// anything else is generic.
func StandardInputs(n int) []ModelInput {
	switch n {
	case 1:
		return []ModelInput{{Kind: InputAudio, Channel: ChannelGlobal}}
	case 2:
		return []ModelInput{{Kind: InputAudio, Channel: ChannelLeft}, {Kind: InputAudio, Channel: ChannelRight}}
	}
	out := make([]ModelInput, n)
	for i := range out {
		out[i] = ModelInput{Kind: InputAudio, Channel: ChannelGeneric}
	}
	return out
}

// StandardOutputs is the output counterpart of StandardInputs.
func StandardOutputs(n int) []ModelOutput {
	switch n {
	case 1:
		return []ModelOutput{{Kind: OutputAudio, Channel: ChannelGlobal}}
	case 2:
		return []ModelOutput{{Kind: OutputAudio, Channel: ChannelLeft}, {Kind: OutputAudio, Channel: ChannelRight}}
	}
	out := make([]ModelOutput, n)
	for i := range out {
		out[i] = ModelOutput{Kind: OutputAudio, Channel: ChannelGeneric}
	}
	return out
}

// CheckParameter verifies a per-channel value against the model's declared parameter.
func (m Model) CheckParameter(id ids.ParameterID, value MultiChannelValue) error {
	param, ok := m.Parameters[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, id)
	}
	if limit := param.Scope.Len(m); len(value) > limit {
		return fmt.Errorf("%w: %s has %d channels, scope allows %d", ErrParameterValue, id, len(value), limit)
	}
	var err error
	value.Channels(func(channel int, v ModelValue) {
		if err == nil && !param.Allows(v) {
			err = fmt.Errorf("%w: %s channel %d value %s", ErrParameterValue, id, channel, v)
		}
	})
	return err
}
