package modulemanager

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "harmonia-modules.yml"

// ModuleConfig represents the module configuration structure
type ModuleConfig struct {
	Modules struct {
		Disabled []string `yaml:"disabled"`
	} `yaml:"modules"`
}

// LoadConfig loads module configuration from YAML file
func LoadConfig(configPath string) (*ModuleConfig, error) {
	config := &ModuleConfig{}

	// Return default config if file doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	// Check for config in current directory first
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName
	}

	// Fall back to the data directory
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	return filepath.Join(dataDir, configFileName)
}
