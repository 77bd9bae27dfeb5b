// Package config loads and validates the Midea bridge configuration.
//
// Configuration comes from a YAML file, is layered over built-in defaults,
// and is finally overridden by MIDEA_BRIDGE_* environment variables. Cloud
// credentials, the MQTT password, the InfluxDB token and the API JWT secret
// should be supplied through the environment.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Midea) // password redacted
package config
