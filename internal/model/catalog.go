package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"audiocloud/internal/ids"
)

var (
	// ErrUnknownModel is returned when a catalog lookup misses.
	ErrUnknownModel = errors.New("unknown model")
	// ErrUnknownParameter is returned when a parameter is not declared by the model.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrParameterValue is returned when a value falls outside a parameter's options.
	ErrParameterValue = errors.New("parameter value out of range")
)

//go:embed builtin_models.toml
var builtinModels []byte

// Catalog maps model ids to models. It is read-only once built.
type Catalog map[ids.ModelID]Model

// ChannelCounts returns the input and output channel counts of a model.
func (c Catalog) ChannelCounts(id ids.ModelID) (int, int, bool) {
	m, ok := c[id]
	if !ok {
		return 0, 0, false
	}
	return m.InputCount(), m.OutputCount(), true
}

// Lookup returns the model for id or ErrUnknownModel.
func (c Catalog) Lookup(id ids.ModelID) (Model, error) {
	m, ok := c[id]
	if !ok {
		return Model{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return m, nil
}

// Merge returns a new catalog holding c overlaid with other.
func (c Catalog) Merge(other Catalog) Catalog {
	out := make(Catalog, len(c)+len(other))
	for id, m := range c {
		out[id] = m
	}
	for id, m := range other {
		out[id] = m
	}
	return out
}

// Filter selects models for listing. Empty fields match everything.
type Filter struct {
	ManufacturerIs string
	NameContains   string
}

func (f Filter) matches(id ids.ModelID) bool {
	if f.ManufacturerIs != "" && id.Manufacturer != f.ManufacturerIs {
		return false
	}
	if f.NameContains != "" && !strings.Contains(id.Name, f.NameContains) {
		return false
	}
	return true
}

// Entry pairs a model with its id for ordered listings.
type Entry struct {
	ID    ids.ModelID
	Model Model
}

// Filter returns the matching models sorted by id.
func (c Catalog) Filter(f Filter) []Entry {
	out := make([]Entry, 0, len(c))
	for id, m := range c {
		if f.matches(id) {
			out = append(out, Entry{ID: id, Model: m})
		}
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// Format selects the catalog file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatForPath picks the format from a file extension, defaulting to TOML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatTOML
}

// LoadCatalog reads a catalog file. An empty path returns the built-in catalog.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	catalog, err := ParseCatalog(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return catalog, nil
}

// ParseCatalog decodes catalog bytes. Both formats share the document shape
// {"models": {"manufacturer/name": {...}}}.
func ParseCatalog(data []byte, format Format) (Catalog, error) {
	jsonData := data
	if format == FormatTOML {
		var generic map[string]any
		if err := toml.Unmarshal(data, &generic); err != nil {
			return nil, err
		}
		// TOML documents go through the JSON decoder so untagged values share one code path.
		converted, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("normalize toml: %w", err)
		}
		jsonData = converted
	}

	var doc struct {
		Models map[string]Model `json:"models"`
	}
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	catalog := make(Catalog, len(doc.Models))
	for key, m := range doc.Models {
		id, err := ids.ParseModelID(key)
		if err != nil {
			return nil, err
		}
		catalog[id] = m
	}
	return catalog, nil
}

var (
	builtinOnce    sync.Once
	builtinCatalog Catalog
)

// Builtin returns a copy of the embedded reference catalog.
func Builtin() Catalog {
	builtinOnce.Do(func() {
		catalog, err := ParseCatalog(builtinModels, FormatTOML)
		if err != nil {
			panic(fmt.Sprintf("builtin model catalog: %v", err))
		}
		builtinCatalog = catalog
	})
	return builtinCatalog.Merge(nil)
}
