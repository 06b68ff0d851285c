// Package kvstore provides the string-keyed caches used by the resolver:
// the title cache (filename title to resolved anime) and the encyclopedia
// detail cache (cross-reference ID to entry).
//
// A store is loaded fully into memory when opened, mutated in memory, and
// rewritten in full by Flush. Two backends exist: a JSON object file written
// atomically through a temp file, and a SQLite table. A store that cannot be
// decoded at open time reports ErrCorrupt; callers treat that as fatal since
// nothing has been processed yet.
//
// Mutations are guarded by a mutex, so a store may be shared between
// goroutines, but flushing is the caller's responsibility.
package kvstore
