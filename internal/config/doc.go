// Package config loads, normalizes, and validates dailyshorts configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files and an optional .env file, and honours
// environment fallbacks such as GEMINI_API_KEY, UPLOADPOST_API_KEY, and
// GITHUB_TOKEN. Credential presence is condensed into a Features value that the
// pipeline receives at construction time.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
