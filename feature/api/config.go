package api

// Config holds configuration for the HTTP API.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// Enabled toggles the whole HTTP surface. Disabled, the daemon still
	// loads and watches assets.
	Enabled bool `mapstructure:"enabled" default:"true"`
}
