package ids

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	cbor "github.com/fxamacker/cbor/v2"
)

// ErrMalformedID is returned when a composite identifier cannot be parsed.
var ErrMalformedID = errors.New("malformed identifier")

// ModelID identifies a processing model as manufacturer/name.
type ModelID struct {
	Manufacturer string
	Name         string
}

// NewModelID builds a model identifier.
func NewModelID(manufacturer, name string) ModelID {
	return ModelID{Manufacturer: manufacturer, Name: name}
}

// ParseModelID parses the "manufacturer/name" form.
func ParseModelID(raw string) (ModelID, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ModelID{}, fmt.Errorf("%w: model id %q: expected manufacturer/name", ErrMalformedID, raw)
	}
	return ModelID{Manufacturer: parts[0], Name: parts[1]}, nil
}

func (id ModelID) String() string {
	return id.Manufacturer + "/" + id.Name
}

// IsZero reports whether the identifier is unset.
func (id ModelID) IsZero() bool {
	return id.Manufacturer == "" && id.Name == ""
}

// Instance returns the fixed instance identifier for the n-th physical unit of this model.
func (id ModelID) Instance(n uint64) FixedInstanceID {
	return FixedInstanceID{Manufacturer: id.Manufacturer, Name: id.Name, Instance: n}
}

func (id ModelID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ModelID) UnmarshalText(text []byte) error {
	parsed, err := ParseModelID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ModelID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(id.String())
}

func (id *ModelID) UnmarshalCBOR(data []byte) error {
	var raw string
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	return id.UnmarshalText([]byte(raw))
}

// FixedInstanceID identifies one physical unit of a model as manufacturer/name/instance.
type FixedInstanceID struct {
	Manufacturer string
	Name         string
	Instance     uint64
}

// ParseFixedInstanceID parses the "manufacturer/name/instance" form.
func ParseFixedInstanceID(raw string) (FixedInstanceID, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return FixedInstanceID{}, fmt.Errorf("%w: fixed instance id %q: expected manufacturer/name/instance", ErrMalformedID, raw)
	}
	instance, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return FixedInstanceID{}, fmt.Errorf("%w: fixed instance id %q: instance is not a number", ErrMalformedID, raw)
	}
	return FixedInstanceID{Manufacturer: parts[0], Name: parts[1], Instance: instance}, nil
}

func (id FixedInstanceID) String() string {
	return id.Manufacturer + "/" + id.Name + "/" + strconv.FormatUint(id.Instance, 10)
}

// ModelID returns the model this instance is a unit of.
func (id FixedInstanceID) ModelID() ModelID {
	return ModelID{Manufacturer: id.Manufacturer, Name: id.Name}
}

func (id FixedInstanceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *FixedInstanceID) UnmarshalText(text []byte) error {
	parsed, err := ParseFixedInstanceID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id FixedInstanceID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(id.String())
}

func (id *FixedInstanceID) UnmarshalCBOR(data []byte) error {
	var raw string
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	return id.UnmarshalText([]byte(raw))
}
