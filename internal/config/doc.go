// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A .env file next to the process is loaded first when present, and RELAY_* variables
// override the handful of settings operators change per deployment.
package config
