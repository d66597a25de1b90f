// Package config provides configuration management for the asset pipeline.
//
// It utilizes Viper for loading configuration from environment variables
// and a local .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Assets: asset server settings (root directory, watch mode, import artifacts)
//   - Api: HTTP settings (port, API key)
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Api.Port)
package config
