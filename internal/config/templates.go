package config

import (
	"fmt"
	"os"
)

// Template returns the annotated starting config for a bridgectl deployment.
func Template() string {
	return bridgeTemplate
}

// WriteTemplate writes the starting config to path. An existing file is only
// replaced when overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(bridgeTemplate), 0o600)
}

const bridgeTemplate = `# Controllers are hardwired to 127.0.0.1:1314; change only when tunneling.
addr = "127.0.0.1:1314"

# Leave blank to disable the admin HTTP surface.
admin_listen_addr = ""
cors_origins = ["http://localhost:3000"]

read_buffer_bytes = 131072
write_timeout = "5s"

# Measurement system for standalone runs; host adapters report their own.
unit_system = "centimeters"
unit_scale = 1.0
`
