// Package config defines the format-agnostic pipeline model, along with the
// Loader interface for reading it from a concrete file format.
//
// The `config.Pipeline` is the single source of truth for the `matrix`,
// `runner`, `cache` and `gate` packages. Concrete loaders for HCL and YAML
// live in separate packages.
package config
