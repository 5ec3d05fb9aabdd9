// Package config implements the configuration store for the LNG telemetry relay.
//
// Configuration is layered: built-in baseline values, then an optional YAML
// file, then RELAY_* environment variables (a .env file in the working
// directory is loaded into the environment first). The merged result is
// validated before use.
package config
