// Package cli builds the command tree, validates user input, and maps
// application outcomes to process exit codes.
package cli
