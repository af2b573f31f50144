// Package config resolves the settings of a rebuild run.
//
// Values come from, highest priority first:
//  1. process environment variables
//  2. the optional env file (KEY=VALUE lines) passed with --env
//  3. the defaults registered in SetDefaults
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/appbaseio/rebuild-indices/errors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const logTag = "[config]"

// Environment keys.
const (
	EsURLKey               = "ES_CLUSTER_URL"
	EsHeaderKey            = "ES_HEADER"
	SniffingKey            = "SET_SNIFFING"
	IndexPrefixKey         = "INDEX_PREFIX"
	RegistryPathKey        = "REGISTRY_PATH"
	BulkRefreshIntervalKey = "BULK_REFRESH_INTERVAL"
	RefreshIntervalSecsKey = "INDEX_REFRESH_INTERVAL_SECONDS"
	StepRetriesKey         = "STEP_RETRIES"
	SkipCloneKey           = "SKIP_CLONE"
	CloneWriteBlockKey     = "CLONE_WRITE_BLOCK"
	CloneCleanupKey        = "CLONE_CLEANUP"
	CloneRetentionKey      = "CLONE_RETENTION"
	LockIndexKey           = "LOCK_INDEX"
	LockTTLKey             = "LOCK_TTL"
	CleanupScheduleKey     = "CLEANUP_SCHEDULE"
)

// CloneCleanupMode decides who removes clones left behind by earlier runs.
type CloneCleanupMode string

const (
	// CloneCleanupManual leaves clones for an operator to delete.
	CloneCleanupManual CloneCleanupMode = "manual"
	// CloneCleanupReconcile deletes clones older than the retention after every run.
	CloneCleanupReconcile CloneCleanupMode = "reconcile"
)

// Config holds the resolved settings for a rebuild run.
type Config struct {
	EsURL    string
	EsHeader string
	Sniffing bool

	IndexPrefix  string
	RegistryPath string

	// BulkRefreshInterval is applied to every index before the build.
	BulkRefreshInterval string
	// RefreshIntervalSeconds is the steady-state value restored after the build.
	RefreshIntervalSeconds int

	StepRetries int
	SkipClone   bool
	// CloneWriteBlock write-blocks each index for the duration of its clone,
	// which the clone API of the cluster requires.
	CloneWriteBlock bool

	CloneCleanup   CloneCleanupMode
	CloneRetention time.Duration

	LockIndex string
	// LockTTL bounds the length of a run: the lock is not renewed, so a run
	// still going after LockTTL can be taken over by the next one.
	LockTTL time.Duration

	CleanupSchedule string
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(SniffingKey, false)
	v.SetDefault(IndexPrefixKey, "")
	v.SetDefault(RegistryPathKey, "registry.toml")
	v.SetDefault(BulkRefreshIntervalKey, "60s")
	v.SetDefault(RefreshIntervalSecsKey, 1)
	v.SetDefault(StepRetriesKey, 2)
	v.SetDefault(SkipCloneKey, false)
	v.SetDefault(CloneWriteBlockKey, false)
	v.SetDefault(CloneCleanupKey, string(CloneCleanupManual))
	v.SetDefault(CloneRetentionKey, "168h")
	v.SetDefault(LockIndexKey, ".rebuild_indices_lock")
	v.SetDefault(LockTTLKey, "6h")
	v.SetDefault(CleanupScheduleKey, "@every 24h")
}

// Load reads envFile into the process environment, if present, and resolves the config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Infoln(logTag, ": reading env file", envFile, ". This may happen if the environments are declared directly :", err)
		}
	}
	v := viper.New()
	v.AutomaticEnv()
	SetDefaults(v)
	return FromViper(v)
}

// FromViper resolves the config out of an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	esURL := v.GetString(EsURLKey)
	if esURL == "" {
		return nil, errors.NewEnvVarNotSetError(EsURLKey)
	}

	cfg := &Config{
		EsURL:                  esURL,
		EsHeader:               v.GetString(EsHeaderKey),
		Sniffing:               v.GetBool(SniffingKey),
		IndexPrefix:            v.GetString(IndexPrefixKey),
		RegistryPath:           v.GetString(RegistryPathKey),
		BulkRefreshInterval:    v.GetString(BulkRefreshIntervalKey),
		RefreshIntervalSeconds: v.GetInt(RefreshIntervalSecsKey),
		StepRetries:            v.GetInt(StepRetriesKey),
		SkipClone:              v.GetBool(SkipCloneKey),
		CloneWriteBlock:        v.GetBool(CloneWriteBlockKey),
		CloneCleanup:           CloneCleanupMode(strings.ToLower(v.GetString(CloneCleanupKey))),
		LockIndex:              v.GetString(LockIndexKey),
		CleanupSchedule:        v.GetString(CleanupScheduleKey),
	}

	var err error
	if cfg.CloneRetention, err = parseDuration(v, CloneRetentionKey); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = parseDuration(v, LockTTLKey); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that viper cannot type check on its own.
func (c *Config) Validate() error {
	if c.StepRetries < 0 {
		return fmt.Errorf("%s must be a non-negative integer, got %d", StepRetriesKey, c.StepRetries)
	}
	if c.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("%s must be a positive integer, got %d", RefreshIntervalSecsKey, c.RefreshIntervalSeconds)
	}
	if c.BulkRefreshInterval == "" {
		return fmt.Errorf("%s can't be empty", BulkRefreshIntervalKey)
	}
	switch c.CloneCleanup {
	case CloneCleanupManual, CloneCleanupReconcile:
	default:
		return fmt.Errorf("%s must be one of %q or %q, got %q", CloneCleanupKey, CloneCleanupManual, CloneCleanupReconcile, c.CloneCleanup)
	}
	if c.CloneRetention <= 0 {
		return fmt.Errorf("%s must be a positive duration, got %s", CloneRetentionKey, c.CloneRetention)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("%s must be a positive duration, got %s", LockTTLKey, c.LockTTL)
	}
	if c.EsHeader != "" && !strings.Contains(c.EsHeader, ":") {
		return fmt.Errorf("%s should be in `Name: value` format", EsHeaderKey)
	}
	return nil
}

// RefreshInterval returns the steady-state refresh interval in the form the
// cluster expects for index.refresh_interval.
func (c *Config) RefreshInterval() string {
	return fmt.Sprintf("%ds", c.RefreshIntervalSeconds)
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

// Hostname is used as a fallback lock owner when the machine id is unavailable.
func Hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown-host"
	}
	return name
}
