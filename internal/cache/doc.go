// Package cache implements the toolchain-keyed job cache.
//
// A job acquires a Scope before its phases run: the blob stored under the
// job's toolchain key is restored into a fresh directory private to that
// job. When the job ends, on every exit path, the scope is released: every
// cached file is made at least world-readable and the directory is persisted
// back under the same key. Two jobs sharing a key race on persistence and
// the last writer wins; the cache is an optimization, never a correctness
// dependency.
//
// Blobs are tar archives compressed with zstd. Stores are pluggable: a local
// directory (LocalStore) or an S3-compatible bucket (BucketStore).
package cache
