// Package admin is the boundary to the index administration API of the cluster.
//
// Every call is a synchronous round trip. Acknowledgement is returned as a
// plain bool next to the error so callers decide how to treat a refusal.
package admin

import "context"

// Index settings a rebuild toggles.
const (
	RefreshIntervalSetting = "index.refresh_interval"
	// WriteBlockSetting must be true on a source index for the cluster to clone it.
	WriteBlockSetting = "index.blocks.write"
)

// SettingsUpdater applies index settings.
type SettingsUpdater interface {
	UpdateSettings(ctx context.Context, index string, settings map[string]interface{}) (bool, error)
	// CurrentRefreshInterval reads the live refresh interval of index.
	CurrentRefreshInterval(ctx context.Context, index string) (string, error)
	// RefreshInterval is the configured steady-state refresh interval.
	RefreshInterval() string
}

// Cloner creates point-in-time copies of indices.
type Cloner interface {
	// Clone copies source into target. The cluster rejects the request unless
	// source is write-blocked, see WriteBlockSetting.
	Clone(ctx context.Context, source, target string) (bool, error)
	// Version returns the cluster's version number, e.g. "7.10.2".
	Version(ctx context.Context) (string, error)
}

// Catalog lists, creates and deletes indices.
type Catalog interface {
	ListIndices(ctx context.Context, pattern string) ([]string, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string, body map[string]interface{}) (bool, error)
	PutMapping(ctx context.Context, name string, mapping map[string]interface{}) (bool, error)
	DeleteIndex(ctx context.Context, name string) (bool, error)
}

// Admin is the whole administration surface.
type Admin interface {
	SettingsUpdater
	Cloner
	Catalog
}
