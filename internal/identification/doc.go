// Package identification turns a filename-derived anime title into one
// resolved anime and its soundtrack.
//
// Engine runs the disambiguation state machine: it ranks catalog candidates,
// backfills missing encyclopedia cross-reference IDs, validates each
// candidate's song database soundtrack against the track numbers seen on
// disk, and falls back to a song database title search anchored on the best
// catalog candidate when none validates. Resolved records are stored in the
// title cache and reused for every later file sharing the title.
//
// The catalog, encyclopedia and songdb subpackages hold the service clients
// and the per-source ranking logic; this package only orchestrates them.
package identification
