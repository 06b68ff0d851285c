// Package catalog searches the anime catalog (the Jikan v4 API over
// MyAnimeList) and ranks the hits against a filename-derived title.
//
// Client speaks the HTTP API. Resolver turns a noisy title into at most a
// handful of ranked anime.Candidate values and attaches the encyclopedia
// cross-reference ID from each candidate's external links when present.
package catalog
