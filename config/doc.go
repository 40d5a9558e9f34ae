// Package config handles loading and parsing of configuration from YAML
// files and environment variables. It defines the application configuration
// structure including the operating mode, domains and TLS material,
// discovery and probe tunables, dead-cache and reconcile intervals, and the
// generated proxy policy parameters.
package config
