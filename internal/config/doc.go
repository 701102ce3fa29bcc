// Package config provides centralized configuration management for the
// dashboard service. It loads configuration from the environment and an
// optional YAML file, validates it, and hands a typed Config to the rest of
// the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern DASH_<SECTION>_<FIELD>:
//
//	DASH_SERVER_PORT=8080
//	DASH_LOGGING_LEVEL=debug
//	DASH_CACHE_MAX_SIZE=25
//	DASH_RETRY_MAX_RETRIES=5
//	DASH_STORE_DRIVER=sqlite
//	DASH_STORE_PATH=/var/lib/dashcli/retry.db
//
// DASH_CONFIG_FILE points at an explicit YAML file; otherwise config.yaml
// and configs/config.yaml are searched relative to the working directory.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache := cache.New[any](cache.WithMaxSize(cfg.Cache.MaxSize))
package config
