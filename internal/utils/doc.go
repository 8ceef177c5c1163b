// Package utils exposes helpers shared by the command-line entry points.
//
// It houses the Viper-backed ConfigurationLoader, the zap LoggerFactory, a
// flushing writer for console progress, and accessors for values carried in
// command contexts.
package utils
