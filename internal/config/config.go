// Package config loads and validates bridgectl TOML configuration and owns
// the template written by configgen.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/scenebridge/bridgectl/internal/bridge"
)

// fileConfig maps config.toml keys to bridge runtime settings.
type fileConfig struct {
	Addr            string   `toml:"addr"`
	AdminListenAddr string   `toml:"admin_listen_addr"`
	CorsOrigins     []string `toml:"cors_origins"`
	ReadBufferBytes int      `toml:"read_buffer_bytes"`
	WriteTimeout    string   `toml:"write_timeout"`
	UnitSystem      string   `toml:"unit_system"`
	UnitScale       float64  `toml:"unit_scale"`
}

// Config is the loaded bridge configuration. UnitSystem/UnitScale only apply
// to standalone runs; a host adapter reports its own measurement system.
type Config struct {
	Service    bridge.ServiceConfig
	UnitSystem string
	UnitScale  float64
}

// Load reads the file at path and overlays its defined keys on the bridge
// defaults. Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Config{Service: bridge.DefaultServiceConfig(), UnitScale: 1.0}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load bridge config: %w", err)
	}

	if meta.IsDefined("addr") {
		addr := strings.TrimSpace(raw.Addr)
		if addr == "" {
			return Config{}, fmt.Errorf("load bridge config: addr must not be blank")
		}
		cfg.Service.ListenAddr = addr
	}
	if meta.IsDefined("admin_listen_addr") {
		cfg.Service.AdminListenAddr = strings.TrimSpace(raw.AdminListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.Service.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("read_buffer_bytes") {
		if raw.ReadBufferBytes <= 0 {
			return Config{}, fmt.Errorf("load bridge config: read_buffer_bytes must be positive")
		}
		cfg.Service.ReadBufferBytes = raw.ReadBufferBytes
	}
	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.Service.WriteTimeout = d
	}
	if meta.IsDefined("unit_system") {
		cfg.UnitSystem = strings.TrimSpace(raw.UnitSystem)
	}
	if meta.IsDefined("unit_scale") {
		if raw.UnitScale <= 0 {
			return Config{}, fmt.Errorf("load bridge config: unit_scale must be positive")
		}
		cfg.UnitScale = raw.UnitScale
	}

	return cfg, nil
}
