package local_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/setwave/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/setwave/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/setwave/pkg/batch/adapter/storage/local"
	coreconfig "github.com/tigerroll/setwave/pkg/batch/core/config"
)

func newTestAdapter(t *testing.T) (storageAdapter.StorageConnection, string) {
	t.Helper()
	baseDir := t.TempDir()
	adapter, err := local.NewLocalAdapter(storageConfig.StorageConfig{
		Type:    local.ProviderType,
		BaseDir: baseDir,
	}, "archive")
	require.NoError(t, err)
	return adapter, baseDir
}

// TestLocalAdapter_UploadDownloadRoundTrip verifies that uploaded content is
// stored under the base directory and read back unchanged.
func TestLocalAdapter_UploadDownloadRoundTrip(t *testing.T) {
	adapter, baseDir := newTestAdapter(t)
	ctx := context.Background()

	content := []byte("sequence,kind\n0,REMOTE_RUNTIME_FAILURE\n")
	require.NoError(t, adapter.Upload(ctx, "exports", "failures/part-0.csv", bytes.NewReader(content), "text/csv"))

	assert.FileExists(t, filepath.Join(baseDir, "exports", "failures", "part-0.csv"))

	rc, err := adapter.Download(ctx, "exports", "failures/part-0.csv")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// TestLocalAdapter_RejectsPathEscape verifies that object names climbing out of
// the base directory are rejected.
func TestLocalAdapter_RejectsPathEscape(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	err := adapter.Upload(ctx, "", "../../escape.txt", strings.NewReader("nope"), "text/plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of base_dir")

	_, err = adapter.Download(ctx, "", "../sibling/secret.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of base_dir")
}

// TestLocalAdapter_ListObjects verifies prefix filtering and slash-separated
// object names.
func TestLocalAdapter_ListObjects(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	for _, name := range []string{"reports/run-a.txt", "reports/run-b.txt", "failures/run-a.parquet"} {
		require.NoError(t, adapter.Upload(ctx, "exports", name, strings.NewReader("x"), "text/plain"))
	}

	var listed []string
	require.NoError(t, adapter.ListObjects(ctx, "exports", "reports/", func(objectName string) error {
		listed = append(listed, objectName)
		return nil
	}))

	sort.Strings(listed)
	assert.Equal(t, []string{"reports/run-a.txt", "reports/run-b.txt"}, listed)
}

// TestLocalAdapter_DeleteObject verifies deletion and that deleting a missing
// object is not an error.
func TestLocalAdapter_DeleteObject(t *testing.T) {
	adapter, baseDir := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Upload(ctx, "exports", "report.txt", strings.NewReader("finished"), "text/plain"))
	require.NoError(t, adapter.DeleteObject(ctx, "exports", "report.txt"))
	assert.NoFileExists(t, filepath.Join(baseDir, "exports", "report.txt"))

	assert.NoError(t, adapter.DeleteObject(ctx, "exports", "never-existed.txt"))
}

// TestLocalProvider_GetConnection verifies config-driven construction and
// connection reuse.
func TestLocalProvider_GetConnection(t *testing.T) {
	baseDir := t.TempDir()
	cfg := coreconfig.NewConfig()
	cfg.Setwave.StorageConfigs["archive"] = map[string]interface{}{
		"type":     "local",
		"base_dir": baseDir,
	}
	cfg.Setwave.StorageConfigs["remote"] = map[string]interface{}{
		"type":        "gcs",
		"bucket_name": "exports",
	}

	provider := local.NewLocalProvider(cfg)

	conn, err := provider.GetConnection("archive")
	require.NoError(t, err)
	assert.Equal(t, "archive", conn.Name())
	assert.Equal(t, local.ProviderType, conn.Type())

	again, err := provider.GetConnection("archive")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	t.Run("TypeMismatch", func(t *testing.T) {
		_, err := provider.GetConnection("remote")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "type mismatch")
	})

	t.Run("UnknownConnection", func(t *testing.T) {
		_, err := provider.GetConnection("absent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	require.NoError(t, provider.CloseAll())
}
