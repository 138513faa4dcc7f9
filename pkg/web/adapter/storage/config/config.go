// Package config holds the storage connection settings decoded from storefront.storage.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type" mapstructure:"type"`                         // Type of storage ("gcs", "local").
	BucketName      string `yaml:"bucket_name" mapstructure:"bucket_name"`           // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"` // Service account key for GCS.
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`                 // Optional API endpoint, e.g. a GCS emulator.
	BaseDir         string `yaml:"base_dir" mapstructure:"base_dir"`                 // Base directory for local file system operations.
}

// Decode converts one raw entry of storefront.storage into a StorageConfig.
func Decode(raw interface{}) (StorageConfig, error) {
	var cfg StorageConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config: %w", err)
	}
	return cfg, nil
}
