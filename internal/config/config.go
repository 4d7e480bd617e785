package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/function"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/metadata"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/thumbnail"
	pkgconfig "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/config"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/database"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/storage"
)

const (
	TriggerModeFunction = "function"
	TriggerModeKafka    = "kafka"
)

type Config struct {
	Log       pkglog.Config    `mapstructure:"log"`
	Function  function.Config  `mapstructure:"function"`
	Trigger   TriggerConfig    `mapstructure:"trigger"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Metadata  MetadataConfig   `mapstructure:"metadata"`
	Thumbnail thumbnail.Config `mapstructure:"thumbnail"`
	Processor ProcessorConfig  `mapstructure:"processor"`
	Notify    pubsub.Config    `mapstructure:"notify"`
}

type TriggerConfig struct {
	Mode  string      `mapstructure:"mode"` // function, kafka
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers          string   `mapstructure:"brokers"`
	ConsumerTopic    string   `mapstructure:"consumer_topic"`
	ConsumerGroupID  string   `mapstructure:"consumer_group_id"`
	ContainerFilter  string   `mapstructure:"container_filter"`
	PrefixFilter     string   `mapstructure:"prefix_filter"`
	EventNameFilters []string `mapstructure:"event_name_filters"`
	Variant          string   `mapstructure:"variant"` // overwrite, derived
}

// StorageConfig mirrors the nested structure used by other services.
type StorageConfig struct {
	Type  string              `mapstructure:"type"` // azure, s3, minio, local, memory
	Azure storage.AzureConfig `mapstructure:"azure"`
	S3    storage.S3Config    `mapstructure:"s3"`
	MinIO storage.MinIOConfig `mapstructure:"minio"`
	Local storage.LocalConfig `mapstructure:"local"`
}

type MetadataConfig struct {
	Driver   string                `mapstructure:"driver"` // tables, database, redis
	Tables   metadata.TablesConfig `mapstructure:"tables"`
	Database database.Config       `mapstructure:"database"`
	Redis    metadata.RedisConfig  `mapstructure:"redis"`
}

type ProcessorConfig struct {
	StrictKeys bool `mapstructure:"strict_keys"`
}

// Container returns the name of the container or bucket blobs live in.
func (c *Config) Container() string {
	switch c.Storage.Type {
	case "s3":
		return c.Storage.S3.Bucket
	case "minio":
		return c.Storage.MinIO.Bucket
	default:
		return c.Storage.Azure.Container
	}
}

// NeedsMetadata reports whether the overwrite pipeline is served and therefore
// needs a metadata store.
func (c *Config) NeedsMetadata() bool {
	return c.Trigger.Mode == TriggerModeFunction || c.Trigger.Kafka.Variant == "overwrite"
}

func Load() (*Config, error) {
	if err := pkgconfig.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "thumbnail-service")
	v.SetDefault("function.port", 8080)
	v.SetDefault("function.invocation_timeout", "0s")
	v.SetDefault("function.blob_binding", function.DefaultBlobBinding)
	v.SetDefault("trigger.mode", TriggerModeFunction)
	v.SetDefault("trigger.kafka.brokers", "localhost:9092")
	v.SetDefault("trigger.kafka.consumer_topic", "storage-events")
	v.SetDefault("trigger.kafka.consumer_group_id", "thumbnail-service")
	v.SetDefault("trigger.kafka.prefix_filter", "")
	v.SetDefault("trigger.kafka.event_name_filters", []string{
		"s3:ObjectCreated:Put",
		"s3:ObjectCreated:CompleteMultipartUpload",
		"Microsoft.Storage.BlobCreated",
	})
	v.SetDefault("trigger.kafka.variant", "derived")
	v.SetDefault("storage.type", "azure")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.region", "us-east-1")
	v.SetDefault("storage.local.base_path", "./data/storage")
	v.SetDefault("metadata.driver", "tables")
	v.SetDefault("metadata.database.driver", "sqlite")
	v.SetDefault("metadata.database.file_path", "./data/thumbnail.db")
	v.SetDefault("metadata.database.max_idle_conns", 5)
	v.SetDefault("metadata.database.max_open_conns", 10)
	v.SetDefault("metadata.database.conn_max_lifetime", 30)
	v.SetDefault("metadata.redis.address", "localhost:6379")
	v.SetDefault("metadata.redis.prefix", "product")
	v.SetDefault("thumbnail.width", thumbnail.DefaultWidth)
	v.SetDefault("thumbnail.height", thumbnail.DefaultHeight)
	v.SetDefault("thumbnail.jpeg_quality", thumbnail.DefaultJPEGQuality)
	v.SetDefault("processor.strict_keys", true)
	v.SetDefault("notify.driver", "")
	v.SetDefault("notify.redis.address", "localhost:6379")
	v.SetDefault("notify.kafka.brokers", "localhost:9092")
	v.SetDefault("notify.kafka.partitions", 1)

	// Env bindings
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.pretty", "LOG_PRETTY")
	v.BindEnv("function.port", "FUNCTIONS_CUSTOMHANDLER_PORT")
	v.BindEnv("function.invocation_timeout", "FUNCTION_INVOCATION_TIMEOUT")
	v.BindEnv("trigger.mode", "TRIGGER_MODE")
	v.BindEnv("trigger.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("trigger.kafka.consumer_topic", "KAFKA_CONSUMER_TOPIC")
	v.BindEnv("trigger.kafka.consumer_group_id", "KAFKA_CONSUMER_GROUP_ID")
	v.BindEnv("trigger.kafka.container_filter", "KAFKA_CONTAINER_FILTER")
	v.BindEnv("trigger.kafka.prefix_filter", "KAFKA_PREFIX_FILTER")
	v.BindEnv("trigger.kafka.event_name_filters", "KAFKA_EVENT_NAME_FILTERS")
	v.BindEnv("trigger.kafka.variant", "KAFKA_VARIANT")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.azure.container", "AZURE_STORAGE_CONTAINER_NAME")
	v.BindEnv("storage.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING", "AzureWebJobsStorage")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.region", "S3_REGION")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("storage.minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio.bucket", "MINIO_BUCKET")
	v.BindEnv("storage.minio.use_ssl", "MINIO_USE_SSL")
	v.BindEnv("storage.minio.public_url", "MINIO_PUBLIC_URL")
	v.BindEnv("storage.minio.create_bucket", "MINIO_CREATE_BUCKET")
	v.BindEnv("storage.local.base_path", "LOCAL_STORAGE_PATH")
	v.BindEnv("metadata.driver", "METADATA_DRIVER")
	v.BindEnv("metadata.tables.connection_string", "AZURE_TABLES_CONNECTION_STRING")
	v.BindEnv("metadata.tables.table_name", "AZURE_TABLES_NAME")
	v.BindEnv("metadata.database.driver", "DB_DRIVER")
	v.BindEnv("metadata.database.host", "DB_HOST")
	v.BindEnv("metadata.database.port", "DB_PORT")
	v.BindEnv("metadata.database.user", "DB_USER")
	v.BindEnv("metadata.database.password", "DB_PASSWORD")
	v.BindEnv("metadata.database.dbname", "DB_NAME")
	v.BindEnv("metadata.redis.address", "REDIS_ADDRESS")
	v.BindEnv("metadata.redis.password", "REDIS_PASSWORD")
	v.BindEnv("processor.strict_keys", "PROCESSOR_STRICT_KEYS")
	v.BindEnv("notify.driver", "NOTIFY_DRIVER")
	v.BindEnv("notify.redis.address", "NOTIFY_REDIS_ADDRESS")
	v.BindEnv("notify.kafka.brokers", "NOTIFY_KAFKA_BROKERS")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// The Kafka path reads blobs from a single container, so by default only
	// that container's events are accepted.
	if cfg.Trigger.Kafka.ContainerFilter == "" {
		cfg.Trigger.Kafka.ContainerFilter = cfg.Container()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the selected trigger, storage and metadata
// drivers depend on. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Trigger.Mode {
	case TriggerModeFunction:
		if c.Function.Port <= 0 {
			errs = append(errs, fmt.Errorf("function.port must be positive, got %d", c.Function.Port))
		}
	case TriggerModeKafka:
		if c.Trigger.Kafka.Brokers == "" || c.Trigger.Kafka.ConsumerTopic == "" {
			errs = append(errs, errors.New("trigger.kafka.brokers and trigger.kafka.consumer_topic are required"))
		}
		if !slices.Contains([]string{"overwrite", "derived"}, c.Trigger.Kafka.Variant) {
			errs = append(errs, fmt.Errorf("unsupported trigger.kafka.variant: %q", c.Trigger.Kafka.Variant))
		}
		if c.Container() == "" {
			errs = append(errs, errors.New("kafka trigger needs a container or bucket name for the selected storage"))
		} else if c.Trigger.Kafka.ContainerFilter != c.Container() {
			errs = append(errs, fmt.Errorf("trigger.kafka.container_filter %q must match the storage container %q",
				c.Trigger.Kafka.ContainerFilter, c.Container()))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported trigger.mode: %q", c.Trigger.Mode))
	}

	switch c.Storage.Type {
	case "azure":
		if c.Storage.Azure.Container == "" {
			errs = append(errs, errors.New("AZURE_STORAGE_CONTAINER_NAME is required"))
		}
		if c.Storage.Azure.ConnectionString == "" {
			errs = append(errs, errors.New("AZURE_STORAGE_CONNECTION_STRING or AzureWebJobsStorage is required"))
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required"))
		}
	case "minio":
		if c.Storage.MinIO.Bucket == "" {
			errs = append(errs, errors.New("storage.minio.bucket is required"))
		}
	case "local", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported storage.type: %q", c.Storage.Type))
	}

	if c.NeedsMetadata() {
		switch c.Metadata.Driver {
		case "tables":
			if c.Metadata.Tables.ConnectionString == "" || c.Metadata.Tables.TableName == "" {
				errs = append(errs, errors.New("AZURE_TABLES_CONNECTION_STRING and AZURE_TABLES_NAME are required"))
			}
		case "database", "redis":
		default:
			errs = append(errs, fmt.Errorf("unsupported metadata.driver: %q", c.Metadata.Driver))
		}
	}

	switch c.Notify.Driver {
	case "", "redis", "kafka":
	default:
		errs = append(errs, fmt.Errorf("unsupported notify.driver: %q", c.Notify.Driver))
	}

	return errors.Join(errs...)
}
