package buildindices

import (
	"context"
	"fmt"

	"github.com/appbaseio/rebuild-indices/admin"
	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/appbaseio/rebuild-indices/model/index"
	"github.com/appbaseio/rebuild-indices/util"
	log "github.com/sirupsen/logrus"
)

// cloneStep copies every index into a fresh, timestamped clone. With
// writeBlock set, each source is write-blocked for the duration of its clone.
type cloneStep struct {
	admin      admin.Cloner
	settings   admin.SettingsUpdater
	namer      *index.Namer
	writeBlock bool
}

// preflight checks that the cluster offers the clone API at all.
func (c *cloneStep) preflight(ctx context.Context) error {
	version, err := c.admin.Version(ctx)
	if err != nil {
		return fmt.Errorf("reading cluster version: %w", err)
	}
	ok, err := util.SupportsClone(version)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewUnsupportedVersionError("clone index", version, util.CloneMinVersion)
	}
	return nil
}

// apply clones names in order and stops at the first clone that is not
// acknowledged. Clones created so far, and the unacknowledged one, are left
// in place.
func (c *cloneStep) apply(ctx context.Context, names []index.Name) ([]index.Name, error) {
	if err := c.preflight(ctx); err != nil {
		return nil, err
	}
	clones := make([]index.Name, 0, len(names))
	for _, name := range names {
		target := c.namer.CloneName(name)
		ack, err := c.cloneOne(ctx, name, target)
		if err != nil {
			return clones, fmt.Errorf("cloning index %s into %s: %w", name, target, err)
		}
		log.Infoln(logTag, ": cloned index", name, "into", target, ", Acknowledged:", ack)
		if !ack {
			log.Errorln(logTag, ": partial clone, cloned indices may need to be cleaned up:", target)
			return clones, errors.NewUnacknowledgedError("clone", name.String(), "target "+target.String())
		}
		clones = append(clones, target)
	}
	return clones, nil
}

func (c *cloneStep) cloneOne(ctx context.Context, source, target index.Name) (bool, error) {
	if !c.writeBlock {
		return c.admin.Clone(ctx, source.String(), target.String())
	}

	if err := c.setWriteBlock(ctx, source, true); err != nil {
		return false, err
	}
	ack, err := c.admin.Clone(ctx, source.String(), target.String())
	if uerr := c.setWriteBlock(ctx, source, nil); uerr != nil {
		log.Errorln(logTag, ": index", source, "is left write-blocked:", uerr)
		if err == nil {
			return ack, uerr
		}
	}
	return ack, err
}

// setWriteBlock sets the write block of name to value; nil resets it to the
// cluster default.
func (c *cloneStep) setWriteBlock(ctx context.Context, name index.Name, value interface{}) error {
	ack, err := c.settings.UpdateSettings(ctx, name.String(), map[string]interface{}{admin.WriteBlockSetting: value})
	if err != nil {
		return fmt.Errorf("setting %s of index %s: %w", admin.WriteBlockSetting, name, err)
	}
	if !ack {
		return errors.NewUnacknowledgedError("update settings", name.String(), fmt.Sprintf("%s=%v", admin.WriteBlockSetting, value))
	}
	return nil
}
