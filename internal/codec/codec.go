// Package codec provides the wire encodings used for task specs, modification
// batches and errors. Every wire type in taskspec implements both JSON and
// CBOR marshalers, so a codec only needs to pick the byte format.
package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Codec marshals typed values to and from one byte format.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Registry maps content types and short names to codecs.
type Registry struct {
	byType map[string]Codec
	byName map[string]Codec
}

// NewRegistry returns a registry holding JSON and CBOR.
func NewRegistry() (*Registry, error) {
	r := &Registry{byType: make(map[string]Codec), byName: make(map[string]Codec)}
	r.Register("json", JSON())
	cborCodec, err := CBOR()
	if err != nil {
		return nil, fmt.Errorf("init cbor codec: %w", err)
	}
	r.Register("cbor", cborCodec)
	return r, nil
}

// Register adds a codec under its content type and a short name.
func (r *Registry) Register(name string, c Codec) {
	r.byType[c.ContentType()] = c
	r.byName[strings.ToLower(name)] = c
}

// Get returns a codec by content type or short name, or nil.
func (r *Registry) Get(key string) Codec {
	key = strings.ToLower(strings.TrimSpace(key))
	if c, ok := r.byType[key]; ok {
		return c
	}
	return r.byName[key]
}

// Lookup is Get with an error for unknown formats.
func (r *Registry) Lookup(key string) (Codec, error) {
	if c := r.Get(key); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("unknown format %q", key)
}

// ForPath picks a codec from a file extension. Anything but .cbor is JSON.
func (r *Registry) ForPath(path string) Codec {
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		return r.byName["cbor"]
	}
	return r.byName["json"]
}

// ReadFile decodes a file with the codec its extension selects.
func (r *Registry) ReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := r.ForPath(path).Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
