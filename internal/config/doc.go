// Package config loads, normalizes, and validates framediff configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the OPENAI_API_KEY environment fallback. Commands
// obtain every directory, model setting, retry bound and prompt through the
// Config type so downstream packages receive sanitized values.
package config
