// Package models defines the domain types shared by the resolution and delivery engine.
//
// The package contains two categories of types:
//
// 1. Transient values produced per request:
//   - [Track] : artist/title pair returned by the catalog, keyed by the pair itself
//   - [ActionToken] : decoded intent carried by a selectable UI element
//   - [DownloadResult] : local audio artifact owned by the caller until released
//
// 2. Persisted records owned by the persistence collaborator:
//   - [UserProfile] : display mode and interaction counter per user
//   - [DownloadRecord] : append-only history of successful deliveries
package models
