// Package services talks to the music metadata service and turns its answers into [models.Track] values.
//
// # Catalog Interface
//
// [Catalog] abstracts the metadata provider so the engine can be tested against fakes.
// Every call returns a slice, never an error. Failures are logged and collapse to an empty result.
//
// # Last.fm Implementation
//
// [LastFMService] calls the Last.fm 2.0 JSON API with an API key:
//   - track.search : [LastFMService.SearchTracks]
//   - track.getsimilar : [LastFMService.SimilarTracks]
//   - chart.gettoptracks : [LastFMService.TopTracks]
//   - artist.gettoptracks : [LastFMService.ArtistTopTracks]
//
// Calls share a [rate.Limiter] and each one runs under its own timeout.
//
// The API is loose about shapes. A list of one track arrives as a bare object, an empty list
// arrives as a string, artists are either strings or objects, and durations are either numbers or
// numeric strings. The decoding types in lastfm.go absorb all of these.
//
// # Resolver
//
// [Resolver] applies the default result sizes on top of a [Catalog]:
// five candidates for a query and ten recommendations for a track.
package services
