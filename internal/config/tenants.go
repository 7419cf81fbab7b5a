package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TenantOverride replaces parts of the default backend configuration for one tenant.
type TenantOverride struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// TenantsFile is the on-disk layout of ENGAGE_TENANTS_FILE.
type TenantsFile struct {
	Tenants map[string]TenantOverride `yaml:"tenants"`
}

// LoadTenantOverrides reads tenant overrides from a YAML file.
// An empty path yields no overrides.
func LoadTenantOverrides(path string) (map[string]TenantOverride, error) {
	if path == "" {
		return map[string]TenantOverride{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenants file: %w", err)
	}

	var file TenantsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tenants file: %w", err)
	}
	if file.Tenants == nil {
		file.Tenants = map[string]TenantOverride{}
	}
	return file.Tenants, nil
}
