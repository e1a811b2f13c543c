// Package config loads, normalizes, and validates sockpoke configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the SOCKPOKE_SOCKET environment fallback. The Config
// type gathers every knob the CLI needs: the default endpoint path, listener
// locking, transcript recording, display colour and log output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
