// Package config holds quota-cli defaults read from a YAML file.
//
// Precedence, lowest first: built-in defaults, the config file, QUOTA_CLI_*
// environment variables, command-line flags. The last two are applied by
// the command package through urfave/cli.
package config
