package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/setwave/pkg/batch/adapter/storage"
	coreconfig "github.com/tigerroll/setwave/pkg/batch/core/config"
)

// TestDecodeStorageConfig verifies binding of a named section from the
// 'storage' part of the application configuration.
func TestDecodeStorageConfig(t *testing.T) {
	cfg := coreconfig.NewConfig()
	cfg.Setwave.StorageConfigs["archive"] = map[string]interface{}{
		"type":             "gcs",
		"bucket_name":      "setwave-exports",
		"credentials_file": "/etc/gcp/sa.json",
	}

	storageCfg, err := storageAdapter.DecodeStorageConfig(cfg, "archive")
	require.NoError(t, err)
	assert.Equal(t, "gcs", storageCfg.Type)
	assert.Equal(t, "setwave-exports", storageCfg.BucketName)
	assert.Equal(t, "/etc/gcp/sa.json", storageCfg.CredentialsFile)

	_, err = storageAdapter.DecodeStorageConfig(cfg, "absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
