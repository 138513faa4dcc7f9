package gcs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	storageConfig "github.com/tigerroll/storefront/pkg/web/adapter/storage/config"
	"github.com/tigerroll/storefront/pkg/web/adapter/storage/gcs"
)

func TestClientOptions(t *testing.T) {
	assert.Empty(t, gcs.ClientOptions(storageConfig.StorageConfig{Type: "gcs", BucketName: "b"}))
	assert.Len(t, gcs.ClientOptions(storageConfig.StorageConfig{CredentialsFile: "/etc/sa.json"}), 1)
	assert.Len(t, gcs.ClientOptions(storageConfig.StorageConfig{Endpoint: "http://localhost:4443/storage/v1/"}), 2)
}

func TestNewGCSAdapter_RequiresBucket(t *testing.T) {
	_, err := gcs.NewGCSAdapter(storageConfig.StorageConfig{Type: "gcs"}, "exports")
	assert.ErrorContains(t, err, "bucket_name must be specified")
}

func TestNewGCSAdapter_WithEmulatorEndpoint(t *testing.T) {
	conn, err := gcs.NewGCSAdapter(storageConfig.StorageConfig{
		Type:       "gcs",
		BucketName: "exports",
		Endpoint:   "http://127.0.0.1:4443/storage/v1/",
	}, "exports")
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "gcs", conn.Type())
	assert.Equal(t, "exports", conn.Config().BucketName)
	assert.NoError(t, conn.Close())
}
