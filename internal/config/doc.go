// Package config defines the application's configuration structure and
// loading logic. Configuration is grouped by concern (server, database,
// queue, auth, providers, quota) and loaded from environment variables
// with an optional YAML file, then validated before use.
package config
