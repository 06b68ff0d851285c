// Package library reads the music folder: it parses "<Title> OP2.mp3" style
// filenames, repairs raw filenames into that shape, lists the audio files,
// and derives the per-title track requirements the engine validates
// soundtracks against.
//
// All filesystem access goes through an afero.Fs so the scanner and the
// normalizer can be exercised against an in-memory tree.
package library
