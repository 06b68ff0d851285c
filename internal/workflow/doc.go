// Package workflow runs one tagging batch over the music library.
//
// The Manager takes the single-instance lock under the cache directory, scans
// the library, builds the per-title track requirements and then walks the
// files in title order: resolve the title through the identification engine,
// select the requested song, and either write tags (fetching cover art on the
// way) or, in self-test mode, verify the existing tags by reverse lookup.
//
// Per-file problems are recorded in the returned Summary and never abort the
// batch. Only lock contention, an unreadable library, a failed cache flush or
// cancellation surface as errors. Services wires the concrete clients, pacers
// and stores a Manager needs from configuration.
package workflow
