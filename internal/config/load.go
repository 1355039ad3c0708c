package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ErrNoChecks = errors.New("no checks configured")

// Load reads, decodes and validates a YAML or JSON configuration file.
func Load(path string) (*Settings, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("config %s: must have a .yaml, .yml or .json extension", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("bgpcheck.live_reload", false)
	v.SetDefault("bgpcheck.monitoring_interval", DefaultMonitoringInterval)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var s Settings
	if err := v.Unmarshal(&s, decoderConfig); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	s.File = path

	if len(s.Checks) == 0 {
		return nil, fmt.Errorf("config %s: %w", path, ErrNoChecks)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &s, nil
}

// Source owns the configuration file and tracks its modification time so
// that changes can be picked up without a restart.
type Source struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	settings *Settings
	mtime    time.Time
}

// Open loads the file once. Errors here are fatal to the caller since no
// check can run without valid settings.
func Open(path string, logger *zap.Logger) (*Source, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	logger.Info("config_loaded",
		zap.String("file", path),
		zap.Int("checks", len(s.Checks)),
	)
	return &Source{path: path, logger: logger, settings: s, mtime: st.ModTime()}, nil
}

func (s *Source) Settings() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Modified reports whether the file changed since the last (attempted) load.
func (s *Source) Modified() bool {
	st, err := os.Stat(s.path)
	if err != nil {
		s.logger.Warn("config_stat_error", zap.String("file", s.path), zap.Error(err))
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !st.ModTime().Equal(s.mtime)
}

// Reload re-reads the file. On failure the previous settings stay in effect
// and the new modification time is still recorded, so the next attempt
// waits for another change.
func (s *Source) Reload() (*Settings, error) {
	var mtime time.Time
	if st, err := os.Stat(s.path); err == nil {
		mtime = st.ModTime()
	}
	next, err := Load(s.path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !mtime.IsZero() {
		s.mtime = mtime
	}
	if err != nil {
		s.logger.Error("config_reload_failed", zap.String("file", s.path), zap.Error(err))
		return nil, err
	}
	s.settings = next
	s.logger.Info("config_reloaded", zap.String("file", s.path), zap.Int("checks", len(next.Checks)))
	return next, nil
}
