// Package songdb resolves soundtracks from the song database (AnisongDB).
//
// Rows returned by the search endpoint are one song each. GroupRows folds
// them into one anime.Soundtrack per encyclopedia ID, dropping songs credited
// to English-dub artists. Resolver offers the exact cross-reference lookup,
// the title fallback used when no catalog candidate validates, and the
// reverse artist/title lookup used by the self-test.
package songdb
