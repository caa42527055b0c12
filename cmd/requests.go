package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/melodyforge/internal/formatter"
	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
	"github.com/desertthunder/melodyforge/internal/tasks"
	"github.com/desertthunder/melodyforge/internal/tokens"
	"github.com/urfave/cli/v3"
)

// Start creates the user's profile and prints the welcome text.
func (r *Runner) Start(ctx context.Context, cmd *cli.Command) error {
	return r.respond(ctx, cmd, tasks.Request{Kind: tasks.KindStart})
}

// Search resolves free text into candidate tracks.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	return r.respond(ctx, cmd, tasks.Request{Kind: tasks.KindFreeText, Query: query})
}

// Top prints the global chart.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	return r.respond(ctx, cmd, tasks.Request{Kind: tasks.KindTopChart})
}

// Artist prints an artist's top tracks.
func (r *Runner) Artist(ctx context.Context, cmd *cli.Command) error {
	artist := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(artist) == "" {
		return fmt.Errorf("%w: artist name", shared.ErrMissingArgument)
	}
	return r.respond(ctx, cmd, tasks.Request{Kind: tasks.KindArtistTop, Artist: artist})
}

// Similar is shorthand for selecting the similar action of a seed track.
func (r *Runner) Similar(ctx context.Context, cmd *cli.Command) error {
	token, err := tokens.EncodeFit(models.IntentShowSimilar, cmd.String("artist"), cmd.String("title"))
	if err != nil {
		return err
	}
	return r.respond(ctx, cmd, tasks.Request{Kind: tasks.KindSelection, Token: token})
}

// Select runs the action encoded in a token. Downloads are copied into --out.
func (r *Runner) Select(ctx context.Context, cmd *cli.Command) error {
	token := cmd.Args().First()
	if token == "" {
		return fmt.Errorf("%w: token", shared.ErrMissingArgument)
	}

	var saved string
	deliver := deliverTo(cmd.String("out"), func(path string) { saved = path })

	resp, err := r.request(ctx, tasks.Request{Kind: tasks.KindSelection, Token: token, Deliver: deliver})
	if err != nil {
		return err
	}
	if err := r.writeResponse(cmd, resp); err != nil {
		return err
	}
	if saved != "" && !cmd.Bool("json") {
		r.writePlain("Saved to %s\n", saved)
	}
	return resp.Err
}

// Mix builds a personal mix from recent downloads.
func (r *Runner) Mix(ctx context.Context, cmd *cli.Command) error {
	return r.respond(ctx, cmd, tasks.Request{Kind: tasks.KindMix})
}

// Mode switches the user's display mode.
func (r *Runner) Mode(ctx context.Context, cmd *cli.Command) error {
	mode := cmd.Args().First()
	if mode == "" {
		return fmt.Errorf("%w: basic or extended", shared.ErrMissingArgument)
	}
	return r.respond(ctx, cmd, tasks.Request{Kind: tasks.KindSetMode, Mode: mode})
}

// History prints recent downloads, or exports them with --format/--out.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, out := cmd.String("format"), cmd.String("out")
	if format == "" && out == "" {
		return r.respond(ctx, cmd, tasks.Request{Kind: tasks.KindHistory})
	}

	if err := r.ensureEngine(); err != nil {
		return err
	}
	records, err := r.store.ListRecentDownloads(ctx, r.userID, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list downloads: %w", err)
	}

	if out != "" {
		if format == "" {
			format = strings.TrimPrefix(filepath.Ext(out), ".")
		}
		if err := formatter.WriteHistoryExport(records, out, format); err != nil {
			return err
		}
		r.logger.Info("exported history", "records", len(records), "path", out)
		return r.writePlain("✓ Exported %d downloads to %s\n", len(records), out)
	}

	switch strings.ToLower(format) {
	case "csv":
		data, err := formatter.HistoryToCSV(records)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	case "json":
		return r.writeJSON(records, cmd.Bool("pretty"))
	case "text", "txt":
		return r.writePlain("%s", formatter.HistoryToText(records))
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
}

// deliverTo returns a [tasks.DeliverFunc] that copies each artifact into dir.
// saved is called with the destination path after a successful copy.
func deliverTo(dir string, saved func(path string)) tasks.DeliverFunc {
	return func(ctx context.Context, artifact *models.DownloadResult) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		src, err := os.Open(artifact.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open artifact: %w", err)
		}
		defer src.Close()

		dest := filepath.Join(dir, fileName(artifact.Title)+filepath.Ext(artifact.LocalPath))
		dst, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", dest, err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			os.Remove(dest)
			return fmt.Errorf("failed to copy artifact: %w", err)
		}
		if err := dst.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}

		if saved != nil {
			saved(dest)
		}
		return nil
	}
}

// fileName makes title safe to use as a file name.
func fileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, ". ")
	if name == "" {
		return "track"
	}
	return name
}
