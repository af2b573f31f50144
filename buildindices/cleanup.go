package buildindices

import (
	"context"
	"fmt"
	"time"

	"github.com/appbaseio/rebuild-indices/admin"
	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/appbaseio/rebuild-indices/model/index"
	log "github.com/sirupsen/logrus"
)

// CloneReaper deletes clones older than a retention period.
type CloneReaper struct {
	catalog   admin.Catalog
	retention time.Duration
	now       func() time.Time
}

// NewCloneReaper returns a reaper keeping clones younger than retention.
// now defaults to time.Now.
func NewCloneReaper(catalog admin.Catalog, retention time.Duration, now func() time.Time) *CloneReaper {
	if now == nil {
		now = time.Now
	}
	return &CloneReaper{catalog: catalog, retention: retention, now: now}
}

// Expired lists the clones of sources created before the retention cutoff,
// in catalog order. Names that merely look like clones of another index are
// skipped.
func (r *CloneReaper) Expired(ctx context.Context, sources []index.Name) ([]index.Name, error) {
	if r.retention <= 0 {
		return nil, fmt.Errorf("clone retention must be positive, got %s", r.retention)
	}
	cutoff := r.now().Add(-r.retention)
	var expired []index.Name
	for _, source := range sources {
		names, err := r.catalog.ListIndices(ctx, source.String()+index.CloneInfix+"*")
		if err != nil {
			return nil, fmt.Errorf("listing clones of %s: %w", source, err)
		}
		for _, name := range names {
			src, created, ok := index.ParseClone(index.Name(name))
			if !ok || src != source {
				continue
			}
			if created.Before(cutoff) {
				expired = append(expired, index.Name(name))
			}
		}
	}
	return expired, nil
}

// Reap deletes the expired clones of sources and returns the deleted names.
// It stops at the first clone whose deletion is not acknowledged.
func (r *CloneReaper) Reap(ctx context.Context, sources []index.Name) ([]index.Name, error) {
	expired, err := r.Expired(ctx, sources)
	if err != nil {
		return nil, err
	}
	deleted := make([]index.Name, 0, len(expired))
	for _, name := range expired {
		ack, err := r.catalog.DeleteIndex(ctx, name.String())
		if err != nil {
			return deleted, fmt.Errorf("deleting clone %s: %w", name, err)
		}
		if !ack {
			return deleted, errors.NewUnacknowledgedError("delete index", name.String(), "expired clone")
		}
		log.Infoln(logTag, ": deleted expired clone", name)
		deleted = append(deleted, name)
	}
	if len(deleted) == 0 {
		log.Debugln(logTag, ": no clone older than", r.retention)
	}
	return deleted, nil
}
