package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/melodyforge/internal/downloader"
	"github.com/desertthunder/melodyforge/internal/formatter"
	"github.com/desertthunder/melodyforge/internal/repositories"
	"github.com/desertthunder/melodyforge/internal/services"
	"github.com/desertthunder/melodyforge/internal/shared"
	"github.com/desertthunder/melodyforge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The engine and its collaborators are built on first use so that commands like setup never need an API key.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer

	db         *sql.DB
	catalog    services.Catalog
	downloader tasks.Downloader
	store      tasks.Store
	engine     *tasks.Engine

	userID int64
	name   string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Catalog    services.Catalog
	Downloader tasks.Downloader
	Store      tasks.Store
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		catalog:    opts.Catalog,
		downloader: opts.Downloader,
		store:      opts.Store,
		userID:     1,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, startCommand, searchCommand, topCommand, artistCommand, similarCommand,
		selectCommand, mixCommand, historyCommand, modeCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Init reads the global flags and loads the configuration file when it exists.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	r.userID = cmd.Int64("user")
	r.name = cmd.String("name")
	r.configPath = cmd.String("config")

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("loaded config", "path", r.configPath)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}
	return ctx, nil
}

// SetLogger replaces the logger. The engine is rebuilt on next use.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.engine = nil
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// openStore opens the configured database and brings its schema up to date.
func (r *Runner) openStore() error {
	path := r.config.Database.Path
	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if path != ":memory:" {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.store = repositories.NewProfileRepository(db)
	return nil
}

// ensureEngine builds whatever collaborators were not injected and wires them into an engine.
func (r *Runner) ensureEngine() error {
	if r.engine != nil {
		return nil
	}

	if r.catalog == nil {
		catalog, err := services.NewLastFMServiceFromConfig(r.config, r.logger)
		if err != nil {
			return fmt.Errorf("%w: set credentials.lastfm.api_key or %s", err, shared.APIKeyEnv)
		}
		r.catalog = catalog
	}
	if r.store == nil {
		if err := r.openStore(); err != nil {
			return err
		}
	}
	if r.downloader == nil {
		r.downloader = downloader.NewPipelineFromConfig(r.config, r.logger)
	}

	r.engine = tasks.NewEngine(r.catalog, r.downloader, r.store,
		tasks.WithLogger(r.logger),
		tasks.WithPromotions(r.config.Engine.Promotions, r.config.Engine.PromotionCadence),
	)
	return nil
}

// request runs req as the current user, logging progress as it arrives.
func (r *Runner) request(ctx context.Context, req tasks.Request) (*tasks.Response, error) {
	if err := r.ensureEngine(); err != nil {
		return nil, err
	}
	req.UserID = r.userID
	req.DisplayName = r.name

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			if update.Phase == tasks.PhaseDone {
				continue
			}
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	req.Progress = progress
	resp := r.engine.Handle(ctx, req)
	close(progress)
	<-done
	return resp, nil
}

// respond runs req and prints the response. A failed response is returned as the command's error.
func (r *Runner) respond(ctx context.Context, cmd *cli.Command, req tasks.Request) error {
	resp, err := r.request(ctx, req)
	if err != nil {
		return err
	}
	if err := r.writeResponse(cmd, resp); err != nil {
		return err
	}
	return resp.Err
}

type responseJSON struct {
	*tasks.Response
	Error string `json:"error,omitempty"`
}

func (r *Runner) writeResponse(cmd *cli.Command, resp *tasks.Response) error {
	switch {
	case cmd.Bool("json"):
		out := responseJSON{Response: resp}
		if resp.Err != nil {
			out.Error = resp.Err.Error()
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	case cmd.Bool("markdown"):
		return r.writePlain("%s", formatter.ResponseToMarkdown(resp))
	default:
		return r.writePlain("%s", formatter.ResponseToStyled(resp))
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
