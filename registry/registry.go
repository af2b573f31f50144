// Package registry describes the entity types whose indices take part in a
// rebuild and resolves them to physical index names.
package registry

import (
	"fmt"
	"os"

	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

const logTag = "[registry]"

// Entity is one registered entity type.
type Entity struct {
	Name string `toml:"name"`
	// TimeseriesAspects get one index each next to the entity's search index.
	TimeseriesAspects []string               `toml:"timeseries_aspects"`
	Settings          map[string]interface{} `toml:"settings"`
	Mappings          map[string]interface{} `toml:"mappings"`
}

// Source is a read-only view over the known entities.
type Source interface {
	Entities() ([]Entity, error)
	// ExtraIndices lists indices that do not belong to a single entity,
	// e.g. the graph or system metadata indices.
	ExtraIndices() ([]string, error)
	Prefix() string
}

// Registry is a Source loaded from a TOML document.
type Registry struct {
	IndexPrefix string   `toml:"prefix"`
	Extra       []string `toml:"extra_indices"`
	Entity      []Entity `toml:"entities"`
}

// Entities implements Source.
func (r *Registry) Entities() ([]Entity, error) {
	return r.Entity, nil
}

// ExtraIndices implements Source.
func (r *Registry) ExtraIndices() ([]string, error) {
	return r.Extra, nil
}

// Prefix implements Source.
func (r *Registry) Prefix() string {
	return r.IndexPrefix
}

// WithPrefix returns a copy of r using prefix, unless prefix is empty.
func (r *Registry) WithPrefix(prefix string) *Registry {
	if prefix == "" {
		return r
	}
	cp := *r
	cp.IndexPrefix = prefix
	return &cp
}

// Load reads and validates the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	log.Debugln(logTag, ": loaded", len(reg.Entity), "entities from", path)
	return reg, nil
}

// Parse validates data against the registry schema and decodes it.
func Parse(data []byte) (*Registry, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var reg Registry
	if err := toml.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func validate(doc map[string]interface{}) error {
	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return err
	}
	if res.Valid() {
		return nil
	}
	first := res.Errors()[0]
	return fmt.Errorf("invalid registry: %s (and %d more)", first.String(), len(res.Errors())-1)
}

// Definition is a resolved index together with the body it is built from.
type Definition struct {
	Name     string
	Settings map[string]interface{}
	Mappings map[string]interface{}
}

// Definitions resolves src to index definitions, first occurrence wins.
func Definitions(src Source) ([]Definition, error) {
	if src == nil {
		return nil, errors.ErrNilRegistry
	}
	entities, err := src.Entities()
	if err != nil {
		return nil, fmt.Errorf("listing registry entities: %w", err)
	}
	extra, err := src.ExtraIndices()
	if err != nil {
		return nil, fmt.Errorf("listing extra indices: %w", err)
	}

	conv := Convention{Prefix: src.Prefix()}
	seen := make(map[string]struct{})
	var defs []Definition
	add := func(d Definition) {
		if _, ok := seen[d.Name]; ok {
			return
		}
		seen[d.Name] = struct{}{}
		defs = append(defs, d)
	}

	for _, e := range entities {
		add(Definition{Name: conv.EntityIndex(e.Name), Settings: e.Settings, Mappings: e.Mappings})
		for _, aspect := range e.TimeseriesAspects {
			add(Definition{Name: conv.TimeseriesIndex(e.Name, aspect)})
		}
	}
	for _, name := range extra {
		add(Definition{Name: conv.Index(name)})
	}
	return defs, nil
}
