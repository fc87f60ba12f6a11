package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"repochat/internal/git"
	"repochat/internal/models"
	"repochat/internal/output"
)

var (
	repoAddURL    string
	repoAddBranch string
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List registered repositories",
	Long: `Show all repositories registered with the dashboard.

Without arguments, prints a summary table with branch and last-commit
information gathered from each working tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reposListRun()
	},
}

var reposAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Register a local repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reposAddRun(cmd.Context(), args[0], args[1])
	},
}

func init() {
	reposAddCmd.Flags().StringVar(&repoAddURL, "url", "", "Remote URL (cloned if the path does not exist)")
	reposAddCmd.Flags().StringVar(&repoAddBranch, "branch", "", "Branch to record (default: current branch)")
	reposCmd.AddCommand(reposAddCmd)
	rootCmd.AddCommand(reposCmd)
}

func reposListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	repos, err := s.ListRepos()
	if err != nil {
		return err
	}

	if len(repos) == 0 {
		ui.Info("No repositories registered. Use 'repochat repos add <name> <path>' to get started.")
		return nil
	}

	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	sort.Strings(names)

	gc := git.NewClient()
	table := ui.Table([]string{"Repository", "Branch", "Path", "Last Commit", "URL"})

	for _, name := range names {
		cfg := repos[name]

		branch := cfg.Branch
		if b, err := gc.CurrentBranch(cfg.LocalPath); err == nil {
			branch = b
		}

		activity := "n/a"
		if date, err := gc.LastCommitDate(cfg.LocalPath); err == nil && !date.IsZero() {
			activity = timeAgo(date)
		}

		table.Append([]string{
			output.Cyan(name),
			branch,
			cfg.LocalPath,
			activity,
			cfg.RepoURL,
		})
	}

	table.Render()
	return nil
}

func reposAddRun(ctx context.Context, name, path string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	gc := git.NewClient()

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if repoAddURL == "" {
			return fmt.Errorf("path does not exist: %s (pass --url to clone)", path)
		}
		if dryRun {
			ui.DryRunMsg("Would clone %s into %s", repoAddURL, path)
			return nil
		}
		ui.Info("Cloning %s", repoAddURL)
		if err := gc.Clone(ctx, repoAddURL, path); err != nil {
			return fmt.Errorf("clone failed: %w", err)
		}
	}

	branch := repoAddBranch
	if branch == "" {
		if b, err := gc.CurrentBranch(path); err == nil {
			branch = b
		}
	}

	if dryRun {
		ui.DryRunMsg("Would register repository %q at %s", name, path)
		return nil
	}

	cfg := &models.RepoConfig{
		LocalPath: path,
		RepoURL:   repoAddURL,
		Branch:    branch,
	}
	if err := s.PutRepo(name, cfg); err != nil {
		return err
	}

	ui.Success("Registered repository %s (%s)", name, path)
	return nil
}

// timeAgo formats a time as a compact relative duration.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
