// Package app wires application dependencies for the CLI.
//
// Config is loaded with viper from flags, SECRETLINE_* environment variables,
// an optional YAML file and defaults, in that order of precedence. NewWire
// builds the concrete store, relay clients and channel services from it and
// exposes them via the Wire struct for commands to use.
package app
