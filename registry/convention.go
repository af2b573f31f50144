package registry

import (
	"strings"

	"github.com/appbaseio/rebuild-indices/model/index"
)

// Convention derives physical index names from entity names.
type Convention struct {
	Prefix string
}

// Index applies the prefix to a bare index name.
func (c Convention) Index(base string) string {
	if c.Prefix == "" {
		return base
	}
	return c.Prefix + "_" + base
}

// EntityIndex returns the search index of an entity.
func (c Convention) EntityIndex(entity string) string {
	return c.Index(strings.ToLower(entity) + "index_v2")
}

// TimeseriesIndex returns the index of a timeseries aspect of an entity.
func (c Convention) TimeseriesIndex(entity, aspect string) string {
	return c.Index(strings.ToLower(entity) + "_" + strings.ToLower(aspect) + "aspect_v1")
}

// Enumerate resolves src to the ordered, duplicate free set of index names
// taking part in a rebuild.
func Enumerate(src Source) ([]index.Name, error) {
	defs, err := Definitions(src)
	if err != nil {
		return nil, err
	}
	names := make([]index.Name, len(defs))
	for i, d := range defs {
		names[i] = index.Name(d.Name)
	}
	return names, nil
}
