package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pit/internal/config"
	"pit/internal/errors"
	"pit/internal/repo"
	"pit/internal/watch"
	"pit/internal/workspace"
)

func newInitCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new Pit repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := startDir()
			if err != nil {
				return err
			}
			cfg, err := config.LoadRepo(filepath.Join(dir, workspace.MetaDir))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if branch == "" {
				branch = cfg.DefaultBranch
			}

			if err := repo.Init(dir, branch); err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			fmt.Printf("Initialized empty Pit repository in %s (branch %s)\n", dir, branch)
			return nil
		},
	}
	cmd.Flags().StringVarP(&branch, "branch", "b", "", "name of the initial branch")
	return cmd
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <paths...>",
		Short: "Stage files for the next commit",
		Long:  `Stages the named files. Directories are added recursively; use '.' for everything.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo("add", func(r *repo.Repo) error {
				entries, err := r.Stage(args)
				if err != nil {
					return fmt.Errorf("staging files: %w", err)
				}
				green := color.New(color.FgGreen).SprintFunc()
				for _, e := range entries {
					fmt.Printf("\t%s %s %s\n", green("+"), e.Digest.Short(), e.Path)
				}
				return nil
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Long: `Lists staged, modified, deleted and untracked files. With --watch the
status is printed again whenever a file in the working tree changes. The
repository is only opened while a refresh runs, so other pit commands can
be used meanwhile.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, cfg, err := locate()
			if err != nil {
				return err
			}
			if err := withRepoAt(root, cfg, "status", showStatus); err != nil {
				return err
			}
			if !watchMode {
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Println(color.New(color.Faint).Sprint("watching for changes, press Ctrl-C to stop"))
			return watchStatus(ctx, root, cfg)
		},
	}
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "keep running and refresh on changes")
	return cmd
}

func showStatus(r *repo.Repo) error {
	s, err := r.Status()
	if err != nil {
		return fmt.Errorf("getting status: %w", err)
	}
	printStatus(s)
	return nil
}

// watchStatus re-renders the status of the repository at root whenever a
// watched file changes, until ctx is done. Each refresh opens the
// repository afresh, so it sees staging done by other commands.
func watchStatus(ctx context.Context, root string, cfg *config.Config) error {
	logger, err := newLogger(cfg, "watch")
	if err != nil {
		return err
	}
	ws, err := workspace.NewLocalWorkspace(root, logger)
	if err != nil {
		return err
	}
	w, err := watch.New(ws, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx, func(paths []string) {
		logger.Debug("files changed", zap.Strings("paths", paths))
		fmt.Println()
		if err := withRepoAt(root, cfg, "status", showStatus); err != nil {
			// Another pit command may hold the repository for a moment.
			logger.Warn("refreshing status", zap.Error(err))
		}
	})
}

func newCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record the staged files as a new commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo("commit", func(r *repo.Repo) error {
				res, err := r.Commit(message)
				if err != nil {
					if errors.Is(err, errors.ErrorTypeNothingToCommit) {
						fmt.Println("Nothing to commit")
						return nil
					}
					return fmt.Errorf("committing: %w", err)
				}

				branch, err := r.Refs.CurrentBranch()
				if err != nil {
					return err
				}
				fmt.Printf("[%s %s] %s\n", branch, color.YellowString(res.Commit.Short()), firstLine(message))
				for _, c := range res.Changed {
					fmt.Printf("\t%s %s\n", c.Kind, c.Path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff [branch|commit]",
		Short: "Show changes",
		Long: `Without an argument, compares the last commit and the staging index
with the working tree. With a branch name or commit digest, compares that
commit with the current one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return withRepo("diff", func(r *repo.Repo) error {
				rep, err := r.Diff(target)
				if err != nil {
					return fmt.Errorf("computing diff: %w", err)
				}
				printDiff(rep)
				return nil
			})
		},
	}
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <branch>",
		Short: "Fast-forward the current branch to another branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo("merge", func(r *repo.Repo) error {
				out, err := r.Merge(args[0])
				switch {
				case errors.Is(err, errors.ErrorTypeNothingToMerge):
					fmt.Println("Already up to date")
					return nil
				case errors.Is(err, errors.ErrorTypeNoSimpleMerge):
					fmt.Println(color.RedString("No simple merge can be done"))
					return err
				case err != nil:
					return fmt.Errorf("merging %s: %w", args[0], err)
				}

				fmt.Printf("Fast-forward %s..%s (%d commit(s))\n",
					out.Base.Short(), color.GreenString(out.Target.Short()), out.Ahead)
				return nil
			})
		},
	}
}

func newCheckoutCmd() *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "checkout <branch>",
		Short: "Switch branches",
		Long: `Points HEAD at the branch and empties the staging index. Files in the
working tree are left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo("checkout", func(r *repo.Repo) error {
				if err := r.Checkout(args[0], create); err != nil {
					return fmt.Errorf("checking out %s: %w", args[0], err)
				}
				if create {
					fmt.Printf("Switched to a new branch '%s'\n", args[0])
				} else {
					fmt.Printf("Switched to branch '%s'\n", args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&create, "create", "b", false, "create the branch at the current commit")
	return cmd
}

func newBranchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branch",
		Short: "List branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo("branch", func(r *repo.Repo) error {
				branches, err := r.Branches()
				if err != nil {
					return fmt.Errorf("listing branches: %w", err)
				}
				for _, b := range branches {
					commit := b.Commit.Short()
					if commit == "" {
						commit = "(no commits)"
					}
					if b.Current {
						fmt.Printf("* %s %s\n", color.GreenString(b.Name), commit)
					} else {
						fmt.Printf("  %s %s\n", b.Name, commit)
					}
				}
				return nil
			})
		},
	}
}

func newLogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the history of the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo("log", func(r *repo.Repo) error {
				entries, err := r.Log(limit)
				if err != nil {
					return fmt.Errorf("reading history: %w", err)
				}
				if len(entries) == 0 {
					fmt.Println("No commits yet")
					return nil
				}
				for _, e := range entries {
					fmt.Println(color.YellowString("commit %s", e.Digest))
					fmt.Printf("\n    %s\n\n", e.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits shown")
	return cmd
}
