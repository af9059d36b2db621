// Package config loads service configuration with Viper. A YAML file,
// found under ./cmd/<service>/ or the working directory, is overlaid by
// an optional .env file (godotenv) and by environment variables carrying
// the service's prefix.
//
//	var cfg Config
//	if err := config.LoadConfig("flowrun", &cfg); err != nil { ... }
package config
