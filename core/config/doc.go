// Package config provides configuration management for the feed sync
// service.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, outbound user agent)
//   - Database: MySQL connection details
//   - Storage: S3/MinIO credentials and bucket settings for feed snapshots
//   - Log: Logging level and format
//   - Shopify: remote catalog credentials and API version
//   - Sync: reconciliation pipeline tuning (batch size, retries, cache)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
