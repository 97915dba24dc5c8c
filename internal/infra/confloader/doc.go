// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader on top of koanf that
// reads YAML files, environment variables and maps into typed structs.
//
// Priority (highest to lowest):
//
//  1. Environment variables (QUOTA_ prefix, "__" between levels)
//  2. Configuration file
//  3. Default values
//
// Watcher follows a configuration file with fsnotify so that settings
// safe to change at runtime, such as the log level, can be reapplied
// without a restart.
package confloader
