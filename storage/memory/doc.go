// Package memory provides in-process implementations of storage.JobStore and
// storage.FingerprintStore.
//
// Both stores are built on sync.Map so that operations on different keys
// never contend. The job store keeps one slot per job holding an atomically
// swapped snapshot: readers load the snapshot without locking while writers
// serialize on the slot's own mutex.
package memory
