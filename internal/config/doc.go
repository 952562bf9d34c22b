// Package config loads the dreamlog pattern service configuration.
//
// Configuration is loaded from multiple sources in priority order (highest wins):
//  1. Default values in code
//  2. base.yaml
//  3. {environment}.yaml
//  4. local.yaml (development only, gitignored)
//  5. Environment variables
//
// Usage:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    log.Fatal("Failed to load configuration:", err)
//	}
//
// In development a ConfigWatcher reloads the files on change and notifies callbacks; the API
// binary uses it to adjust the log level without a restart.
package config
