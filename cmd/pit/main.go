// cmd/pit/main.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pit/internal/config"
	"pit/internal/logging"
	"pit/internal/repo"
	"pit/internal/workspace"
)

var (
	workDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pit",
	Short: "Pit is a small content-addressed version control system",
	Long: `Pit records snapshots of a working directory as blob, tree and commit
objects, keeps branches as plain ref files and fast-forwards between them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "run as if pit was started in this directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newStatusCmd(),
		newCommitCmd(),
		newDiffCmd(),
		newMergeCmd(),
		newCheckoutCmd(),
		newBranchCmd(),
		newLogCmd(),
	)
}

// startDir is the directory commands operate from.
func startDir() (string, error) {
	dir := workDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = cwd
	}
	return filepath.Abs(dir)
}

// newLogger builds the console logger for one command. The --log-level flag
// wins over the configured level.
func newLogger(cfg *config.Config, op string) (*zap.Logger, error) {
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	l, err := logging.NewConsoleLogger(level)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return l.WithOperation(op), nil
}

// locate finds the repository containing the start directory and reads its
// config.
func locate() (string, *config.Config, error) {
	dir, err := startDir()
	if err != nil {
		return "", nil, err
	}
	root, err := workspace.FindRoot(dir)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadRepo(filepath.Join(root, workspace.MetaDir))
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}
	return root, cfg, nil
}

// withRepo runs fn against the repository containing the start directory.
func withRepo(op string, fn func(r *repo.Repo) error) error {
	root, cfg, err := locate()
	if err != nil {
		return err
	}
	return withRepoAt(root, cfg, op, fn)
}

// withRepoAt opens the repository at root with a logger tagged for op, runs
// fn and closes it again, releasing the metadata database lock.
func withRepoAt(root string, cfg *config.Config, op string, fn func(r *repo.Repo) error) error {
	logger, err := newLogger(cfg, op)
	if err != nil {
		return err
	}
	r, err := repo.Open(root, repo.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			r.Logger.Warn("closing repository", zap.Error(err))
		}
		_ = r.Logger.Sync()
	}()
	return fn(r)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}
