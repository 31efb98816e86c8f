package run

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"

	"github.com/flarebyte/folio-mirror/internal/config"
	"github.com/flarebyte/folio-mirror/internal/odoo"
	"github.com/flarebyte/folio-mirror/internal/stage"
)

// Options are the command-line settings shared by run and diagnose.
type Options struct {
	ConfigPath string
	EnvFile    string
	OutDir     string
	Unstaged   string
	LogLevel   string
	NoManifest bool
	Progress   bool
	Strict     bool
}

// Session is an authenticated connection plus the resolved settings.
type Session struct {
	Config config.Config
	Logger *slog.Logger
	Client *odoo.Client
}

// Open loads the configuration, applies flag overrides and authenticates.
// Authentication failure is fatal: no query is issued.
func Open(ctx context.Context, opts Options, logOut io.Writer) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, err
	}
	if opts.OutDir != "" {
		cfg.Output.Dir = opts.OutDir
	}
	if opts.Unstaged != "" {
		cfg.Output.Unstaged = opts.Unstaged
	}
	if opts.NoManifest {
		cfg.Output.Manifest = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level := opts.LogLevel
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}
	logger, err := newLogger(logOut, level)
	if err != nil {
		return nil, err
	}
	client, err := odoo.NewClient(odoo.Config{
		URL:      cfg.Connection.URL,
		Database: cfg.Connection.Database,
		Username: cfg.Connection.Username,
		Password: cfg.Connection.Password,
		Timeout:  time.Duration(cfg.Connection.TimeoutSeconds) * time.Second,
	}, odoo.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("connecting", "url", cfg.Connection.URL, "database", cfg.Connection.Database)
	if _, err := client.Authenticate(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.Info("authenticated", "user", cfg.Connection.Username)
	return &Session{Config: cfg, Logger: logger, Client: client}, nil
}

// Close releases the connection.
func (s *Session) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Close()
}

// Envelope returns the initial run context for folio.
func (s *Session) Envelope(folio string, started time.Time) stage.Envelope {
	return stage.Envelope{
		Folio: folio,
		Meta: &stage.Meta{
			RunID:       uuid.NewString(),
			StartedAt:   started,
			FolioFields: folioFields(s.Config.FolioFields),
			Unstaged:    s.Config.Output.Unstaged,
			Manifest:    s.Config.Output.Manifest,
			LuaSandbox:  luaSandbox(s.Config.Lua),
		},
	}
}

// Deps returns the step collaborators writing into fs.
func (s *Session) Deps(fs billy.Filesystem) stage.Deps {
	return stage.Deps{Directory: s.Client, FS: fs, Logger: s.Logger}
}

// OutputFS returns the filesystem rooted at the output directory. The
// directory itself is created with the first run folder.
func (s *Session) OutputFS() billy.Filesystem {
	return osfs.New(s.Config.Output.Dir)
}

func folioFields(in []config.FolioField) []stage.FieldDescriptor {
	if len(in) == 0 {
		return nil
	}
	out := make([]stage.FieldDescriptor, 0, len(in))
	for _, f := range in {
		out = append(out, stage.FieldDescriptor{Name: strings.TrimSpace(f.Name), Lua: f.Lua})
	}
	return out
}

func luaSandbox(in config.LuaSandbox) *stage.LuaSandbox {
	s := stage.DefaultLuaSandbox()
	if in.HasTimeoutMs {
		s.TimeoutMs = in.TimeoutMs
	}
	if in.HasInstructionLimit {
		s.InstructionLimit = in.InstructionLimit
	}
	if in.HasMemoryLimitBytes {
		s.MemoryLimitBytes = in.MemoryLimitBytes
	}
	return &s
}
