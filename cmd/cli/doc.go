// Package cli constructs the psk-migrate command-line interface. It wires the
// Cobra command hierarchy to the layered configuration loader and the zap
// logger, and registers the migrate command.
package cli
