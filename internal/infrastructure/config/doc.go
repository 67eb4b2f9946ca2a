// Package config handles loading and validating IoT admin core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (IOTADMIN_*)
//   - Validation of required fields
//   - Default value handling, including values derived from the instance id
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The JWT secret has no default and must be provided
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Instance.ID, cfg.Instance.NoCommon)
package config
