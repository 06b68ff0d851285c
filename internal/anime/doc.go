// Package anime defines the records shared by the identification pipeline:
// catalog candidates, encyclopedia entries, soundtracks and the resolved
// title records persisted in the title cache.
//
// Track numbers and track types parsed from filenames meet the soundtrack
// here too. TrackRequirement captures the per-title completeness bar a
// soundtrack must clear, and Soundtrack.Track performs the final lookup of a
// single song.
package anime
