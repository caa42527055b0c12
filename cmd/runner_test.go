package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/melodyforge/internal/models"
	"github.com/desertthunder/melodyforge/internal/shared"
	tu "github.com/desertthunder/melodyforge/internal/testing"
)

type fixture struct {
	catalog    *tu.MockCatalog
	downloader *tu.MockDownloader
	store      *tu.MockStore
	output     *bytes.Buffer
	runner     *Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog: &tu.MockCatalog{
			Search: []models.Track{
				{Artist: "Daft Punk", Title: "One More Time"},
				{Artist: "Daft Punk", Title: "Aerodynamic"},
			},
			Similar: []models.Track{{Artist: "Justice", Title: "D.A.N.C.E."}},
			Top:     []models.Track{{Artist: "Chart", Title: "Topper"}},
			Artist:  []models.Track{{Artist: "Daft Punk", Title: "Around the World"}},
		},
		downloader: &tu.MockDownloader{Dir: t.TempDir(), Content: []byte("audio")},
		store:      tu.NewMockStore(),
		output:     &bytes.Buffer{},
	}
	f.runner = NewRunner(RunnerOpts{
		Logger:     shared.NewLogger(io.Discard),
		Output:     f.output,
		Catalog:    f.catalog,
		Downloader: f.downloader,
		Store:      f.store,
	})
	return f
}

// run executes the CLI with args as if typed after the program name.
func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	return newApp(f.runner).Run(context.Background(), append([]string{"mforge", "--config", filepath.Join(t.TempDir(), "none.toml")}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			catalog := &tu.MockCatalog{}
			store := tu.NewMockStore()

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Catalog: catalog,
				Store:   store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: tu.NewLimitedWriter(1, &bytes.Buffer{})})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "search", "top", "artist", "similar", "select", "mix", "history", "mode", "serve", "tui"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})

	t.Run("missing API key", func(t *testing.T) {
		t.Setenv(shared.APIKeyEnv, "")
		config := shared.DefaultConfig()
		config.Credentials.LastFM.APIKey = ""
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})

		err := runner.ensureEngine()
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if runner.db != nil {
			t.Error("expected no database to be opened")
		}
	})

	t.Run("opens and migrates the configured database", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.LastFM.APIKey = "key"
		config.Database.Path = filepath.Join(t.TempDir(), "mforge.db")
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
		t.Cleanup(func() { runner.Close() })

		if err := runner.ensureEngine(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if runner.db == nil || runner.store == nil || runner.downloader == nil {
			t.Fatal("expected collaborators to be built")
		}
		if err := runner.store.EnsureProfile(context.Background(), 1, "ana"); err != nil {
			t.Errorf("expected migrated schema, got %v", err)
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("search prints rows with tokens", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "--user", "7", "search", "one", "more", "time"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if call := f.catalog.LastCall(); call.Method != "SearchTracks" || call.Query != "one more time" {
			t.Errorf("unexpected catalog call %+v", call)
		}
		out := f.output.String()
		if !strings.Contains(out, "dl:Daft Punk|One More Time") {
			t.Errorf("expected download token in output, got %q", out)
		}
		if _, err := f.store.GetProfile(context.Background(), 7); err != nil {
			t.Errorf("expected profile for user 7, got %v", err)
		}
	})

	t.Run("search as JSON", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "search", "--json", "daft punk"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var body struct {
			Text string `json:"text"`
			Rows []struct {
				Label string `json:"label"`
			} `json:"rows"`
		}
		if err := json.Unmarshal(f.output.Bytes(), &body); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", f.output.String(), err)
		}
		if len(body.Rows) != 2 {
			t.Errorf("expected 2 rows, got %d", len(body.Rows))
		}
	})

	t.Run("search without a query", func(t *testing.T) {
		f := newFixture(t)
		err := f.run(t, "search")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if len(f.catalog.Calls()) != 0 {
			t.Error("expected no catalog calls")
		}
	})

	t.Run("select downloads into --out", func(t *testing.T) {
		f := newFixture(t)
		out := t.TempDir()

		if err := f.run(t, "select", "--out", out, "dl:Daft Punk|One More Time"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		saved := filepath.Join(out, "One More Time.mp3")
		tu.AssertFileExists(t, saved)
		if got := tu.MustReadFile(t, saved); got != "audio" {
			t.Errorf("expected copied content, got %q", got)
		}
		if !strings.Contains(f.output.String(), "Saved to "+saved) {
			t.Errorf("expected saved path in output, got %q", f.output.String())
		}
		if len(f.downloader.Released()) != 1 {
			t.Error("expected scratch artifact to be released")
		}
	})

	t.Run("select with a foreign token", func(t *testing.T) {
		f := newFixture(t)
		err := f.run(t, "select", "download_x|||y")
		if !errors.Is(err, shared.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
		if len(f.downloader.Requested()) != 0 {
			t.Error("expected no download")
		}
	})

	t.Run("similar", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "similar", "--artist", "Daft Punk", "--title", "One More Time"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		call := f.catalog.LastCall()
		if call.Method != "SimilarTracks" || call.Artist != "Daft Punk" || call.Title != "One More Time" {
			t.Errorf("unexpected catalog call %+v", call)
		}
		if !strings.Contains(f.output.String(), "Justice - D.A.N.C.E.") {
			t.Errorf("expected similar track in output, got %q", f.output.String())
		}
	})

	t.Run("top and artist", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "top"); err != nil {
			t.Fatalf("top: %v", err)
		}
		if err := f.run(t, "artist", "Daft", "Punk"); err != nil {
			t.Fatalf("artist: %v", err)
		}
		if call := f.catalog.LastCall(); call.Method != "ArtistTopTracks" || call.Artist != "Daft Punk" {
			t.Errorf("unexpected catalog call %+v", call)
		}
		out := f.output.String()
		if !strings.Contains(out, "Chart - Topper") || !strings.Contains(out, "Around the World") {
			t.Errorf("expected chart and artist tracks, got %q", out)
		}
	})

	t.Run("mode", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "--user", "3", "mode", "extended"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		profile, err := f.store.GetProfile(context.Background(), 3)
		if err != nil {
			t.Fatalf("expected profile, got %v", err)
		}
		if profile.Mode != models.ModeExtended {
			t.Errorf("expected extended mode, got %s", profile.Mode)
		}

		if err := f.run(t, "mode", "loud"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("mix without history", func(t *testing.T) {
		f := newFixture(t)
		err := f.run(t, "mix")
		if !errors.Is(err, shared.ErrNotEnoughHistory) {
			t.Errorf("expected ErrNotEnoughHistory, got %v", err)
		}
	})

	t.Run("history", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "select", "--out", t.TempDir(), "dl:Daft Punk|One More Time"); err != nil {
			t.Fatalf("select: %v", err)
		}
		f.output.Reset()

		t.Run("as text", func(t *testing.T) {
			f.output.Reset()
			if err := f.run(t, "history"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(f.output.String(), "1. Daft Punk - One More Time") {
				t.Errorf("expected history entry, got %q", f.output.String())
			}
		})

		t.Run("as CSV", func(t *testing.T) {
			f.output.Reset()
			if err := f.run(t, "history", "--format", "csv"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			out := f.output.String()
			if !strings.HasPrefix(out, "Artist,Title,Downloaded At\n") || !strings.Contains(out, "Daft Punk,One More Time,") {
				t.Errorf("unexpected CSV %q", out)
			}
		})

		t.Run("export by extension", func(t *testing.T) {
			f.output.Reset()
			path := filepath.Join(t.TempDir(), "history.json")
			if err := f.run(t, "history", "--out", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var records []models.DownloadRecord
			if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &records); err != nil {
				t.Fatalf("expected JSON export: %v", err)
			}
			if len(records) != 1 || records[0].Title != "One More Time" {
				t.Errorf("unexpected records %+v", records)
			}
		})

		t.Run("unknown format", func(t *testing.T) {
			if err := f.run(t, "history", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"One More Time", "One More Time"},
		{"AC/DC: Live?", "AC_DC_ Live_"},
		{"  ..hidden.. ", "hidden"},
		{"", "track"},
		{"...", "track"},
	}

	for _, tt := range tests {
		if got := fileName(tt.in); got != tt.want {
			t.Errorf("fileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeliverTo(t *testing.T) {
	src := filepath.Join(t.TempDir(), "job.m4a")
	if err := os.WriteFile(src, []byte("m4a"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("creates the directory and keeps the extension", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		var saved string
		deliver := deliverTo(dir, func(path string) { saved = path })

		if err := deliver(context.Background(), &models.DownloadResult{LocalPath: src, Title: "Song"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if saved != filepath.Join(dir, "Song.m4a") {
			t.Errorf("unexpected destination %q", saved)
		}
		tu.AssertFileExists(t, saved)
	})

	t.Run("missing artifact", func(t *testing.T) {
		deliver := deliverTo(t.TempDir(), nil)
		if err := deliver(context.Background(), &models.DownloadResult{LocalPath: "/nonexistent/x.mp3", Title: "x"}); err == nil {
			t.Error("expected error for missing artifact")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		deliver := deliverTo(t.TempDir(), nil)
		if err := deliver(ctx, &models.DownloadResult{LocalPath: src, Title: "x"}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
