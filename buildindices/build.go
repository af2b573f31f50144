package buildindices

import (
	"context"
	"fmt"

	"github.com/appbaseio/rebuild-indices/admin"
	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/appbaseio/rebuild-indices/model/index"
	"github.com/appbaseio/rebuild-indices/registry"
	log "github.com/sirupsen/logrus"
)

// Builder (re)builds the given indices. It runs between the pre and post
// configure phases, while refresh is relaxed.
type Builder interface {
	Build(ctx context.Context, names []index.Name) error
}

// BuilderFunc adapts a plain function to a Builder.
type BuilderFunc func(ctx context.Context, names []index.Name) error

// Build implements Builder.
func (f BuilderFunc) Build(ctx context.Context, names []index.Name) error {
	return f(ctx, names)
}

// IndexBuilder makes sure every index exists with the settings and mappings
// the registry declares for it. Missing indices are created, existing ones
// get their mappings put again.
type IndexBuilder struct {
	catalog admin.Catalog
	source  registry.Source
}

// NewIndexBuilder returns a builder over catalog for the indices of source.
func NewIndexBuilder(catalog admin.Catalog, source registry.Source) *IndexBuilder {
	return &IndexBuilder{catalog: catalog, source: source}
}

// Build implements Builder.
func (b *IndexBuilder) Build(ctx context.Context, names []index.Name) error {
	defs, err := registry.Definitions(b.source)
	if err != nil {
		return err
	}
	byName := make(map[string]registry.Definition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}

	for _, name := range names {
		def := byName[name.String()]
		if err := b.ensure(ctx, name.String(), def); err != nil {
			return err
		}
	}
	return nil
}

func (b *IndexBuilder) ensure(ctx context.Context, name string, def registry.Definition) error {
	exists, err := b.catalog.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("checking index %s: %w", name, err)
	}

	if !exists {
		body := make(map[string]interface{})
		if len(def.Settings) > 0 {
			body["settings"] = def.Settings
		}
		if len(def.Mappings) > 0 {
			body["mappings"] = def.Mappings
		}
		ack, err := b.catalog.CreateIndex(ctx, name, body)
		if err != nil {
			return fmt.Errorf("creating index %s: %w", name, err)
		}
		if !ack {
			return errors.NewUnacknowledgedError("create index", name, "new index")
		}
		log.Infoln(logTag, ": created index", name)
		return nil
	}

	if len(def.Mappings) == 0 {
		log.Debugln(logTag, ": index", name, "exists, no mappings to apply")
		return nil
	}
	ack, err := b.catalog.PutMapping(ctx, name, def.Mappings)
	if err != nil {
		return fmt.Errorf("updating mappings of index %s: %w", name, err)
	}
	if !ack {
		return errors.NewUnacknowledgedError("put mapping", name, "registry mappings")
	}
	log.Infoln(logTag, ": updated mappings of index", name)
	return nil
}
