// Package downloader turns a track into a playable audio file in scratch storage.
//
// # Pipeline
//
// [Pipeline.Download] runs one job per call:
//  1. create a job directory <scratch_dir>/<uuid>
//  2. search and fetch the best audio stream through a [Fetcher]
//  3. check that the transcoded file exists
//  4. write ID3 tags (mp3 only, failures are logged)
//
// Jobs share nothing but the scratch root, so concurrent downloads never
// overwrite each other. The caller owns the returned [models.DownloadResult]
// and hands it back with [Pipeline.Release] once delivered.
//
// # Failures
//
// Every failure is a [*DownloadFailure] matching [shared.ErrDownloadFailed].
// Its [Stage] says where the job stopped: resolve, fetch, transcode or write.
//
// # Fetchers
//
// [YTDLPFetcher] drives yt-dlp (through go-ytdlp) with ffmpeg post-processing.
// Tests substitute their own [Fetcher].
package downloader
