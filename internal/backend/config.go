package backend

import (
	"fmt"

	"assetinsight/internal/backup"
	"assetinsight/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	c := Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		BackupDir:    appConfig.BackupDir,
	}
	if appConfig.S3Bucket != "" {
		c.S3 = backup.S3Config{
			Bucket:          appConfig.S3Bucket,
			Region:          appConfig.S3Region,
			Endpoint:        appConfig.S3Endpoint,
			AccessKeyID:     appConfig.AWSAccessKeyID,
			SecretAccessKey: appConfig.AWSSecretAccessKey,
			Prefix:          appConfig.S3Prefix,
		}
	}
	return c, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.BackupDir != "" && c.S3.Bucket != "" {
		return fmt.Errorf("backup directory and S3 bucket are mutually exclusive")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend}
}
