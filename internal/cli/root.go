// Package cli implements the repokit command-line interface. The commands
// drive a repository over the sample parent / child_a / child_b hierarchy,
// backed by whatever config.yaml selects.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/repokit/internal/logger"
	"github.com/mesh-intelligence/repokit/internal/paths"
	"github.com/mesh-intelligence/repokit/internal/sample"
	"github.com/mesh-intelligence/repokit/pkg/repository"
	"github.com/mesh-intelligence/repokit/pkg/types"
)

// Version is stamped by the build with -ldflags "-X".
var Version = "0.1.0-dev"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	envFile   string
	logMode   string
	user      bool
	jsonMode  bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	cfg       types.Config
	log       *zap.Logger
}

type sampleRepo = types.Repository[sample.Model, sample.Create, sample.Update]

// NewRootCmd creates the top-level "repokit" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "repokit",
		Short: "Polymorphic CRUD over memory, SQLite and PostgreSQL",
		Long: "repokit reads, lists, creates, updates, upserts and deletes parent,\n" +
			"child_a and child_b models stored in the backend config.yaml selects.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.log.Sync() },
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/"+paths.DefaultConfigDirName+")")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	pf.StringVar(&a.flags.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.StringVar(&a.flags.logMode, "log", "", "log mode: quiet, dev or prod (default: config log_mode)")
	pf.BoolVar(&a.flags.user, "user", false, "use per-user directories instead of the working directory")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newCreateCmd(a),
		newUpdateCmd(a),
		newUpsertCmd(a),
		newDeleteCmd(a),
	)
	return root
}

// Execute runs the root command with os.Args and returns the exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "repokit:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup resolves directories and configuration before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if err := loadEnvFile(a.flags.envFile); err != nil {
		return userError(err)
	}

	configFlag, dataFlag := a.flags.configDir, a.flags.dataDir
	if a.flags.user {
		var err error
		if configFlag == "" {
			if configFlag, err = paths.UserConfigDir(); err != nil {
				return sysError(err)
			}
		}
		if dataFlag == "" {
			if dataFlag, err = paths.UserDataDir(); err != nil {
				return sysError(err)
			}
		}
	}

	configDir, err := paths.ResolveConfigDir(configFlag)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return userError(err)
	}
	if cfg.DataDir, err = paths.ResolveDataDir(dataFlag, cfg.DataDir); err != nil {
		return sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	if a.flags.logMode != "" {
		cfg.LogMode = a.flags.logMode
	}
	if err := cfg.Validate(); err != nil {
		return userError(fmt.Errorf("config: %w", err))
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return userError(err)
	}

	a.configDir = configDir
	a.cfg = cfg
	a.log = log
	a.log.Debug("resolved configuration",
		zap.String("config_dir", configDir),
		zap.String("backend", cfg.Backend),
		zap.String("data_dir", cfg.DataDir),
		zap.String("dsn", logger.RedactDSN(cfg.DSN)),
	)
	return nil
}

// loadEnvFile loads a dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// open builds the repository the configuration selects.
func (a *app) open(ctx context.Context, tables bool) (sampleRepo, io.Closer, error) {
	if !tables && a.cfg.Backend == types.BackendSQLite && a.cfg.DSN == "" {
		if _, err := os.Stat(a.cfg.ResolveDSN()); errors.Is(err, fs.ErrNotExist) {
			return nil, nil, userError(fmt.Errorf("no database in %s (run repokit init)", a.cfg.DataDir))
		}
	}
	opts := []repository.Option{repository.WithLogger(a.log)}
	if tables {
		opts = append(opts, repository.WithTables())
	}
	repo, closer, err := repository.Open[sample.Model, sample.Create, sample.Update](ctx, a.cfg, sample.Registry, opts...)
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("open %s backend: %w", a.cfg.Backend, err))
	}
	return repo, closer, nil
}

// withRepo opens the repository, runs fn and closes it.
func (a *app) withRepo(cmd *cobra.Command, fn func(ctx context.Context, repo sampleRepo) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	repo, closer, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = sysError(cerr)
		}
	}()
	return fn(ctx, repo)
}
