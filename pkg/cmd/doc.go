// Package cmd implements the cobra command tree for the tessctl CLI,
// including subcommands for authentication, application and run
// management, identity inspection, and shell completion.
package cmd
