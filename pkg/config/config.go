package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the docflow commands.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Kafka     KafkaConfig
	Storage   StorageConfig
	GCP       GCPConfig
	Tracing   TracingConfig
	Upload    UploadConfig
	Auth      AuthConfig
	Ingestion IngestionConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"docflow"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"2m"`
}

type KafkaConfig struct {
	Brokers           []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	NotificationTopic string        `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"docflow.object-created"`
	ConsumerGroup     string        `env:"KAFKA_CONSUMER_GROUP" envDefault:"docflow-ingest"`
	DocumentTopic     string        `env:"KAFKA_DOCUMENT_TOPIC" envDefault:"docflow.documents"`
	Retries           int           `env:"KAFKA_RETRIES" envDefault:"3"`
	RetryBackoff      time.Duration `env:"KAFKA_RETRY_BACKOFF" envDefault:"500ms"`
	CompressionCodec  string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize         int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout      time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
	WriteTimeout      time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"10s"`
	RequiredAcks      string        `env:"KAFKA_REQUIRED_ACKS" envDefault:"all"`
	ConsumerMaxBytes  int           `env:"KAFKA_CONSUMER_MAX_BYTES" envDefault:"10485760"`
	ConsumerMaxWait   time.Duration `env:"KAFKA_CONSUMER_MAX_WAIT" envDefault:"1s"`
}

type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"eu-west-1"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	LocalPath string `env:"STORAGE_LOCAL_PATH"`
}

type GCPConfig struct {
	ProjectID      string `env:"GCP_PROJECT_ID"`
	SubscriptionID string `env:"GCP_NOTIFICATION_SUBSCRIPTION" envDefault:"docflow-object-finalize"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=docflow"`
}

type UploadConfig struct {
	DefaultContainer   string   `env:"UPLOAD_DEFAULT_CONTAINER" envDefault:"docflow-inbox"`
	AllowedContainers  []string `env:"UPLOAD_ALLOWED_CONTAINERS" envSeparator:","`
	GeneratedKeyPrefix string   `env:"UPLOAD_GENERATED_KEY_PREFIX"`
	MaxSizeBytes       int64    `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"104857600"`
	RateLimit          float64  `env:"UPLOAD_RATE_LIMIT" envDefault:"0"`
	RateBurst          int      `env:"UPLOAD_RATE_BURST" envDefault:"20"`
}

type AuthConfig struct {
	APIKeys []string `env:"AUTH_API_KEYS" envSeparator:","`
	Header  string   `env:"AUTH_API_KEY_HEADER" envDefault:"X-API-Key"`
}

type IngestionConfig struct {
	Source            string        `env:"INGESTION_SOURCE" envDefault:"kafka"`
	TargetContainer   string        `env:"INGESTION_TARGET_CONTAINER" envDefault:"docflow-inbox"`
	ContainerSource   string        `env:"INGESTION_CONTAINER_SOURCE" envDefault:"config"`
	KeyPattern        string        `env:"INGESTION_KEY_PATTERN" envDefault:"**"`
	MaxObjectBytes    int64         `env:"INGESTION_MAX_OBJECT_BYTES" envDefault:"67108864"`
	InvocationTimeout time.Duration `env:"INGESTION_INVOCATION_TIMEOUT" envDefault:"5m"`
	Sink              string        `env:"INGESTION_SINK" envDefault:"log"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that parse but cannot be acted on.
func (c *Config) Validate() error {
	switch c.Storage.Provider {
	case "minio", "s3", "gcs", "local":
	default:
		return fmt.Errorf("STORAGE_PROVIDER: unsupported provider %q", c.Storage.Provider)
	}
	switch c.Ingestion.Source {
	case "kafka", "store", "pubsub":
	default:
		return fmt.Errorf("INGESTION_SOURCE: unsupported source %q", c.Ingestion.Source)
	}
	switch c.Ingestion.ContainerSource {
	case "config", "notification":
	default:
		return fmt.Errorf("INGESTION_CONTAINER_SOURCE: must be config or notification, got %q", c.Ingestion.ContainerSource)
	}
	switch c.Ingestion.Sink {
	case "log", "kafka":
	default:
		return fmt.Errorf("INGESTION_SINK: unsupported sink %q", c.Ingestion.Sink)
	}
	if c.Ingestion.ContainerSource == "config" && c.Ingestion.TargetContainer == "" {
		return fmt.Errorf("INGESTION_TARGET_CONTAINER: required when INGESTION_CONTAINER_SOURCE=config")
	}
	if c.Ingestion.Source == "pubsub" && c.GCP.ProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID: required when INGESTION_SOURCE=pubsub")
	}
	if c.Upload.DefaultContainer == "" {
		return fmt.Errorf("UPLOAD_DEFAULT_CONTAINER: must not be empty")
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE_BYTES: must be positive")
	}
	return nil
}
