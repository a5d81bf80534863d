// Command manifest_submit proposes a directory of
// package manifests to a hosted upstream repository.
// It keeps one branch per package version, merges
// upstream into it, commits the manifests, and opens
// or reuses a pull request.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/byte4ever/manifest_submit/config"
	"github.com/byte4ever/manifest_submit/gitops/branch"
	"github.com/byte4ever/manifest_submit/gitops/git"
	"github.com/byte4ever/manifest_submit/gitops/git/github"
	"github.com/byte4ever/manifest_submit/gitops/prer"
	"github.com/byte4ever/manifest_submit/gitops/remote"
	"github.com/byte4ever/manifest_submit/gitops/snapshot"
	"github.com/byte4ever/manifest_submit/manifest"
	"github.com/byte4ever/manifest_submit/templating"
)

// tokenVars are read in order for the access token.
var tokenVars = []string{"GITHUB_TOKEN", "GH_TOKEN"}

type options struct {
	configPath string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "manifest_submit",
		Short: "Submit package manifests as pull requests",
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(
				os.Stderr, &slog.HandlerOptions{Level: level},
			)))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(out)

	root.PersistentFlags().StringVar(
		&opts.configPath, "config", "manifest_submit.yaml",
		"Configuration file (.yaml, .toml or .json)",
	)
	root.PersistentFlags().BoolVarP(
		&opts.verbose, "verbose", "v", false,
		"Log debug messages",
	)

	root.AddCommand(
		newSubmitCmd(opts),
		newBranchesCmd(opts),
		newValuesCmd(opts),
	)

	return root
}

func newSubmitCmd(opts *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "submit <manifest-dir>",
		Short: "Propose the manifests of one package version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}

			ch, err := manifest.LoadDir(args[0])
			if err != nil {
				return err
			}

			provider, err := newProvider(cfg)
			if err != nil {
				return err
			}

			s, err := prer.New(provider, submitterConfig(cfg))
			if err != nil {
				return err
			}

			res, err := s.Run(cmd.Context(), ch)
			report(cmd.OutOrStdout(), res)

			return err
		},
	}

	cmd.Flags().BoolVar(
		&dryRun, "dry-run", false,
		"Print the diff without writing to the remote",
	)

	return cmd
}

func newBranchesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "branches [prefix]",
		Short: "List the branches of the head repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			provider, err := newProvider(cfg)
			if err != nil {
				return err
			}

			resolver, err := snapshot.New(provider, snapshot.Config{
				Owner:     cfg.Owner,
				Name:      cfg.Name,
				ForkOwner: cfg.ForkOwner,
			})
			if err != nil {
				return err
			}

			snap, err := resolver.Resolve(cmd.Context())
			if err != nil {
				return err
			}

			branches, err := branch.New(provider, snap.Head)
			if err != nil {
				return err
			}

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			for ref, err := range branches.ListBranches(
				cmd.Context(), prefix, "",
			) {
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ref.Oid, ref.Name)
			}

			return nil
		},
	}
}

func newValuesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "values <enum>",
		Short: "List the values of a schema enum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			provider, err := newProvider(cfg)
			if err != nil {
				return err
			}

			values, err := provider.GetAllValues(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(values, "\n"))

			return nil
		},
	}
}

func newProvider(cfg config.Config) (*github.Provider, error) {
	token, err := accessToken(os.Getenv)
	if err != nil {
		return nil, err
	}

	return github.NewProvider(github.Config{
		AccessToken:    token,
		EnterpriseHost: cfg.EnterpriseHost,
		Policy: remote.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay.Std(),
			MaxDelay:    cfg.Retry.MaxDelay.Std(),
		},
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

// accessToken returns the first non-empty token
// variable.
func accessToken(getenv func(string) string) (string, error) {
	for _, name := range tokenVars {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v, nil
		}
	}

	return "", errors.New(
		"no access token: set " + strings.Join(tokenVars, " or "),
	)
}

func submitterConfig(cfg config.Config) prer.Config {
	return prer.Config{
		Owner:          cfg.Owner,
		Name:           cfg.Name,
		ForkOwner:      cfg.ForkOwner,
		CreateFork:     cfg.CreateFork,
		ManifestRoot:   cfg.ManifestRoot,
		CommitAttempts: cfg.CommitAttempts,
		Concurrency:    cfg.Concurrency,
		Depth:          cfg.Depth,
		MaxTextSize:    cfg.MaxTextSize,
		Amend:          cfg.Amend,
		Draft:          cfg.Draft,
		DryRun:         cfg.DryRun,
		Labels:         cfg.Labels,
		Templates: templating.Templates{
			Commit: cfg.Templates.Commit,
			Title:  cfg.Templates.Title,
			Body:   cfg.Templates.Body,
		},
		Engine: templating.Engine{
			StartTag:  cfg.Templates.StartTag,
			EndTag:    cfg.Templates.EndTag,
			Variables: cfg.Templates.Variables,
		},
	}
}

// report prints what a run did, including partial
// progress of a failed run.
func report(w io.Writer, res prer.Result) {
	fmt.Fprintf(w, "state: %s\n", res.State)

	if res.Branch.Name != "" {
		fmt.Fprintf(w, "branch: %s %s\n", res.Branch.Name, res.Branch.Oid)
	}

	switch {
	case res.DryRun:
		fmt.Fprintf(w, "update: %s\n", res.UpdateState)
		fmt.Fprint(w, res.Preview)
	case res.NoChanges:
		fmt.Fprintln(w, "upstream already holds these manifests")
	}

	if res.Commit != nil {
		fmt.Fprintf(w, "commit: %s\n", res.Commit.Oid)
	}

	if pr := res.PullRequest; pr != nil {
		verb := "reused"
		if res.PullRequestCreated {
			verb = "created"
		}

		fmt.Fprintf(w, "pull request #%d %s: %s\n", pr.Number, verb, pr.URL)
	}

	if res.Outcome == git.Conflict {
		fmt.Fprintln(w, "merge conflict with upstream")
	}
}
