// Package config provides configuration loading for the dashboard AI
// backend.
//
// Configuration is layered: defaults, then a YAML file, then AIDASH_*
// environment variable overrides. The file can be watched with Watcher so
// tenant-facing settings (CORS origins, audit retention, log level) can be
// changed without a restart; the server reacts to reloads by clearing the
// tenant settings cache.
package config
