// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the jobstore.Store interface.
//
// # Concurrency Model
//
// The store uses sync.Map because the workload is write-heavy on
// independent keys: every worker updates the status of its own job while
// the healthcheck server reads snapshots.
//
// State lives for one pipeline invocation and is discarded afterwards. Run
// outcomes that must survive the process go to the history database.
package inmemorystore
