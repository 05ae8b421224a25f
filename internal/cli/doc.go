// Package cli defines the Cobra command tree for the stagehand CLI. Each file
// in this package registers one top-level command (install, uninstall, list,
// etc.) with the root command. Command implementations delegate to internal
// packages for the install engine and only handle flag parsing, output
// formatting, and user interaction.
package cli
