// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, parsing, evaluation of
// the `env()` helper function and translation into the agnostic model.
package hcl
