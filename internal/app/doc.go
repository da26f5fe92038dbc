// Package app contains the core application logic. It wires the pipeline
// loader, matrix expander, executor, release gate and their supporting
// stores into the operations the CLI exposes (run, plan, gate, watch and
// history), decoupled from any specific entrypoint.
package app
