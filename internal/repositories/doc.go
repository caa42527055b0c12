// Package repositories implements SQLite persistence for user profiles and download history.
//
// [ProfileRepository] is the store behind the engine's session policy:
//   - EnsureProfile : idempotent create via INSERT OR IGNORE
//   - GetProfile : [shared.ErrProfileNotFound] when absent
//   - SetMode : unconditional overwrite
//   - AppendDownload : history row plus counter increment in one transaction, returning the new count
//   - ListRecentDownloads : newest first, ties broken by insertion order
//
// Timestamps are written in UTC. The schema lives in the embedded migrations of the shared package.
package repositories
