// Package config loads, normalizes, and validates reelflow configuration from
// TOML. Defaults cover every field so a config file only needs the backend
// connection settings; paths are expanded and directories created on demand.
package config
