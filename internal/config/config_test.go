package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConn = "DefaultEndpointsProtocol=https;AccountName=thumbsdev;AccountKey=ZmFrZWtleWZvcnRlc3Rpbmc=;EndpointSuffix=core.windows.net"

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func setAzureEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_STORAGE_CONTAINER_NAME", "userphotos")
	t.Setenv("AzureWebJobsStorage", testConn)
	t.Setenv("AZURE_TABLES_CONNECTION_STRING", testConn)
	t.Setenv("AZURE_TABLES_NAME", "Products")
}

func TestLoad_FunctionDefaultsFromEnv(t *testing.T) {
	isolate(t)
	setAzureEnv(t)
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TriggerModeFunction, cfg.Trigger.Mode)
	assert.Equal(t, 7071, cfg.Function.Port)
	assert.Equal(t, "blob", cfg.Function.BlobBinding)
	assert.Equal(t, "azure", cfg.Storage.Type)
	assert.Equal(t, "userphotos", cfg.Storage.Azure.Container)
	assert.Equal(t, testConn, cfg.Storage.Azure.ConnectionString)
	assert.Equal(t, "userphotos", cfg.Container())
	assert.Equal(t, "tables", cfg.Metadata.Driver)
	assert.Equal(t, "Products", cfg.Metadata.Tables.TableName)
	assert.Equal(t, 200, cfg.Thumbnail.Width)
	assert.Equal(t, 200, cfg.Thumbnail.Height)
	assert.Equal(t, 80, cfg.Thumbnail.JPEGQuality)
	assert.True(t, cfg.Processor.StrictKeys)
	assert.Equal(t, "", cfg.Notify.Driver)
	assert.Equal(t, "thumbnail-service", cfg.Log.ServiceName)
}

func TestLoad_ExplicitConnectionStringWins(t *testing.T) {
	isolate(t)
	setAzureEnv(t)
	t.Setenv("AZURE_STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "UseDevelopmentStorage=true", cfg.Storage.Azure.ConnectionString)
}

func TestLoad_MissingAzureSettings(t *testing.T) {
	isolate(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AZURE_STORAGE_CONTAINER_NAME")
	assert.Contains(t, err.Error(), "AZURE_TABLES_CONNECTION_STRING")
}

func TestLoad_KafkaDerivedNeedsNoMetadata(t *testing.T) {
	isolate(t)
	t.Setenv("TRIGGER_MODE", "kafka")
	t.Setenv("STORAGE_TYPE", "s3")
	t.Setenv("S3_BUCKET", "images")
	t.Setenv("KAFKA_EVENT_NAME_FILTERS", "s3:ObjectCreated:Put,s3:ObjectCreated:Post")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.NeedsMetadata())
	assert.Equal(t, "derived", cfg.Trigger.Kafka.Variant)
	assert.Equal(t, "images", cfg.Container())
	assert.Equal(t, "images", cfg.Trigger.Kafka.ContainerFilter)
	assert.Equal(t, []string{"s3:ObjectCreated:Put", "s3:ObjectCreated:Post"}, cfg.Trigger.Kafka.EventNameFilters)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := `
trigger:
  mode: kafka
  kafka:
    variant: overwrite
storage:
  type: memory
  azure:
    container: userphotos
metadata:
  driver: redis
function:
  invocation_timeout: 45s
processor:
  strict_keys: false
notify:
  driver: redis
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.NeedsMetadata())
	assert.Equal(t, "redis", cfg.Metadata.Driver)
	assert.Equal(t, 45*time.Second, cfg.Function.InvocationTimeout)
	assert.False(t, cfg.Processor.StrictKeys)
	assert.Equal(t, "redis", cfg.Notify.Driver)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Trigger.Mode = TriggerModeFunction
		c.Function.Port = 8080
		c.Storage.Type = "memory"
		c.Metadata.Driver = "database"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad mode", func(c *Config) { c.Trigger.Mode = "http" }, "trigger.mode"},
		{"bad port", func(c *Config) { c.Function.Port = 0 }, "function.port"},
		{"bad storage", func(c *Config) { c.Storage.Type = "gcs" }, "storage.type"},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, "storage.s3.bucket"},
		{"minio without bucket", func(c *Config) { c.Storage.Type = "minio" }, "storage.minio.bucket"},
		{"bad metadata", func(c *Config) { c.Metadata.Driver = "mongo" }, "metadata.driver"},
		{"bad notify", func(c *Config) { c.Notify.Driver = "nats" }, "notify.driver"},
		{"kafka without topic", func(c *Config) {
			c.Trigger.Mode = TriggerModeKafka
			c.Trigger.Kafka.Variant = "derived"
		}, "consumer_topic"},
		{"kafka without container", func(c *Config) {
			c.Trigger.Mode = TriggerModeKafka
			c.Trigger.Kafka.Brokers = "localhost:9092"
			c.Trigger.Kafka.ConsumerTopic = "events"
			c.Trigger.Kafka.Variant = "derived"
		}, "container or bucket"},
		{"kafka foreign container filter", func(c *Config) {
			c.Trigger.Mode = TriggerModeKafka
			c.Trigger.Kafka.Brokers = "localhost:9092"
			c.Trigger.Kafka.ConsumerTopic = "events"
			c.Trigger.Kafka.Variant = "derived"
			c.Storage.Azure.Container = "userphotos"
			c.Trigger.Kafka.ContainerFilter = "someone-else"
		}, "container_filter"},
		{"kafka bad variant", func(c *Config) {
			c.Trigger.Mode = TriggerModeKafka
			c.Trigger.Kafka.Brokers = "localhost:9092"
			c.Trigger.Kafka.ConsumerTopic = "events"
			c.Trigger.Kafka.Variant = "both"
		}, "variant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_DotEnvAndMinIO(t *testing.T) {
	dir := isolate(t)
	dotenv := "STORAGE_TYPE=minio\nMINIO_BUCKET=uploads\nMETADATA_DRIVER=redis\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o644))
	for _, k := range []string{"STORAGE_TYPE", "MINIO_BUCKET", "METADATA_DRIVER"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.Equal(t, "uploads", cfg.Container())
	assert.Equal(t, "localhost:9000", cfg.Storage.MinIO.Endpoint)
	assert.Equal(t, "redis", cfg.Metadata.Driver)
}
