// Package tasks answers front-end requests with rendering-agnostic responses.
//
// # Request Kinds
//
// [Engine.Handle] dispatches on [Request.Kind]:
//
//  1. [KindFreeText] : search the catalog
//     - basic mode lists up to five tracks with a Download action
//     - extended mode lists up to three tracks with Download and Similar actions
//
//  2. [KindSelection] : decode an action token
//     - Download runs the pipeline, delivers through [Request.Deliver] and records the download
//     - Similar lists up to five recommendations
//
//  3. [KindTopChart], [KindArtistTop] : chart listings with Download actions
//
//  4. [KindMix] : recommendations seeded by a random track from the last five downloads
//
//  5. [KindStart], [KindSetMode], [KindHistory] : profile and history screens
//
// Every request ensures the user's profile exists first. Failures never escape as panics
// or errors: they come back as [Response.Err] with text a front-end can show as-is.
//
// # Artifacts
//
// A downloaded file lives only for the duration of the request. The engine releases it
// after [Request.Deliver] returns, whether delivery succeeded or not.
//
// # Progress Reporting
//
// When [Request.Progress] is set, handlers send [ProgressUpdate] values without blocking.
//
// # Session Policy
//
// [Policy] wraps the [Store] with mode lookup, download recording and the promotion cadence
// (one promotion every tenth download by default).
package tasks
