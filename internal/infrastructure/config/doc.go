// Package config handles loading and validating the daemon's configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with BAMBU_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The printer access token should be set via BAMBU_PRINTER_TOKEN
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Printer.Serial)
package config
