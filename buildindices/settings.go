package buildindices

import (
	"context"
	"fmt"

	"github.com/appbaseio/rebuild-indices/admin"
	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/appbaseio/rebuild-indices/model/index"
	log "github.com/sirupsen/logrus"
)

// settingsStep applies one setting value to every index. The pre and post
// configure phases are two instances of it with different values.
type settingsStep struct {
	key   string
	value string
	admin admin.SettingsUpdater
}

func newRefreshIntervalStep(a admin.SettingsUpdater, value string) *settingsStep {
	return &settingsStep{key: admin.RefreshIntervalSetting, value: value, admin: a}
}

// apply walks names in order and stops at the first index that does not
// acknowledge. Indices already updated keep the new value.
func (s *settingsStep) apply(ctx context.Context, names []index.Name) error {
	for _, name := range names {
		settings := map[string]interface{}{s.key: s.value}
		ack, err := s.admin.UpdateSettings(ctx, name.String(), settings)
		if err != nil {
			return fmt.Errorf("updating %s of index %s: %w", s.key, name, err)
		}
		log.Infoln(logTag, ": updated index", name, "with new settings. Settings:", settings, "Acknowledged:", ack)
		if !ack {
			current, cerr := s.admin.CurrentRefreshInterval(ctx, name.String())
			if cerr != nil {
				current = "unknown (" + cerr.Error() + ")"
			}
			log.Errorln(logTag, ": partial index settings update, please validate", s.key, "of indices", index.Strings(names),
				"- index", name, "currently has", current, ", wanted", s.value, ", steady-state setting:", s.admin.RefreshInterval())
			return errors.NewUnacknowledgedError("update settings", name.String(), fmt.Sprintf("%s=%s", s.key, s.value))
		}
	}
	return nil
}
