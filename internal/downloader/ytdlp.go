package downloader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"
)

// YTDLPFetcher searches YouTube and extracts audio with yt-dlp and ffmpeg.
type YTDLPFetcher struct {
	format     string
	quality    string
	executable string
}

// NewYTDLPFetcher creates a fetcher. An empty executable resolves yt-dlp from PATH.
func NewYTDLPFetcher(format, quality, executable string) *YTDLPFetcher {
	if format == "" {
		format = defaultFormat
	}
	if quality == "" {
		quality = "192K"
	}
	return &YTDLPFetcher{format: format, quality: quality, executable: executable}
}

func (f *YTDLPFetcher) command(dir string) *ytdlp.Command {
	cmd := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat(f.format).
		AudioQuality(f.quality).
		NoPlaylist().
		RestrictFilenames().
		Output(filepath.Join(dir, "%(title)s.%(ext)s")).
		PrintJSON().
		Quiet().
		NoWarnings()

	if f.executable != "" {
		cmd.SetExecutable(f.executable)
	}
	return cmd
}

// Fetch downloads the first search hit for query into dir.
func (f *YTDLPFetcher) Fetch(ctx context.Context, query, dir string) (*FetchInfo, error) {
	res, err := f.command(dir).Run(ctx, "ytsearch1:"+query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil || len(infos) == 0 {
		return nil, ErrNoResults
	}

	video := infos[0]
	if len(video.Entries) > 0 {
		video = video.Entries[0]
	}

	info := &FetchInfo{}
	if video.Title != nil {
		info.Title = *video.Title
	}
	if video.Duration != nil {
		info.Duration = int(*video.Duration)
	}
	return info, nil
}
