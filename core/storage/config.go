package storage

// Config holds configuration for the object-storage provider backing
// remote asset sources.
type Config struct {
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID for authentication.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket is the bucket asset objects are read from.
	Bucket string `mapstructure:"bucket" default:"assets"`
	// Region is the storage region (optional for MinIO).
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds bounds connection setup and first-byte latency.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Enabled wires the "remote" source namespace at startup.
	Enabled bool `mapstructure:"enabled" default:"false"`
}
