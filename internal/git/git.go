package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Commit is one entry from the commit list.
type Commit struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// GraphCommit is one node of the commit graph, carrying parent hashes
// so callers can reconstruct branch/merge structure.
type GraphCommit struct {
	Hash    string   `json:"hash"`
	Parents []string `json:"parents"`
	Author  string   `json:"author"`
	Date    string   `json:"date"`
	Message string   `json:"message"`
}

// Client defines the interface for git operations on arbitrary repos.
// All methods take a path parameter since repochat operates on multiple
// repos. Clone and Pull take a context because they hit the network.
type Client interface {
	CurrentRevision(path string) (string, error)
	LastCommitDate(path string) (time.Time, error)
	CurrentBranch(path string) (string, error)
	BranchList(path string) ([]string, error)
	Commits(path string, limit int) ([]Commit, error)
	CommitGraph(path string, limit int) ([]GraphCommit, error)

	Clone(ctx context.Context, url, path string) error
	Pull(ctx context.Context, path string) (string, error)
	Checkout(path, branch string) error
	CreateBranch(path, branch string) error
	AddAll(path string) error
	Commit(path, message, authorName, authorEmail string) error
	Push(path string) error
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func gitCmdContext(ctx context.Context, path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.CommandContext(ctx, "git", fullArgs...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) CurrentRevision(path string) (string, error) {
	return gitCmd(path, "rev-parse", "HEAD")
}

func (c *RealClient) LastCommitDate(path string) (time.Time, error) {
	out, err := gitCmd(path, "log", "-1", "--format=%aI")
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, out)
}

func (c *RealClient) CurrentBranch(path string) (string, error) {
	return gitCmd(path, "rev-parse", "--abbrev-ref", "HEAD")
}

func (c *RealClient) BranchList(path string) ([]string, error) {
	out, err := gitCmd(path, "branch", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// logFormat uses tab separators so parsing survives arbitrary subjects.
const logFormat = "%H%x09%P%x09%an%x09%ad%x09%s"

func (c *RealClient) Commits(path string, limit int) ([]Commit, error) {
	graph, err := c.CommitGraph(path, limit)
	if err != nil {
		return nil, err
	}
	commits := make([]Commit, len(graph))
	for i, g := range graph {
		commits[i] = Commit{Hash: g.Hash, Author: g.Author, Date: g.Date, Message: g.Message}
	}
	return commits, nil
}

func (c *RealClient) CommitGraph(path string, limit int) ([]GraphCommit, error) {
	args := []string{"log", "--pretty=format:" + logFormat, "--date=iso"}
	if limit > 0 {
		args = append(args, fmt.Sprintf("-n%d", limit))
	}
	out, err := gitCmd(path, args...)
	if err != nil {
		return nil, err
	}
	return ParseCommitGraph(out), nil
}

// ParseCommitGraph parses tab-separated `git log` output produced with
// logFormat into graph commits.
func ParseCommitGraph(output string) []GraphCommit {
	var commits []GraphCommit
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 5)
		if len(fields) < 5 {
			continue
		}
		var parents []string
		if fields[1] != "" {
			parents = strings.Fields(fields[1])
		}
		commits = append(commits, GraphCommit{
			Hash:    fields[0],
			Parents: parents,
			Author:  fields[2],
			Date:    fields[3],
			Message: fields[4],
		})
	}
	return commits
}

func (c *RealClient) Clone(ctx context.Context, url, path string) error {
	out, err := exec.CommandContext(ctx, "git", "clone", url, path).CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s: %s", url, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *RealClient) Pull(ctx context.Context, path string) (string, error) {
	return gitCmdContext(ctx, path, "pull")
}

func (c *RealClient) Checkout(path, branch string) error {
	_, err := gitCmd(path, "checkout", branch)
	return err
}

func (c *RealClient) CreateBranch(path, branch string) error {
	_, err := gitCmd(path, "checkout", "-b", branch)
	return err
}

func (c *RealClient) AddAll(path string) error {
	_, err := gitCmd(path, "add", ".")
	return err
}

// Commit records staged changes. The identity is passed per-invocation
// so repos without a configured user still commit.
func (c *RealClient) Commit(path, message, authorName, authorEmail string) error {
	_, err := gitCmd(path,
		"-c", "user.name="+authorName,
		"-c", "user.email="+authorEmail,
		"commit", "-m", message)
	return err
}

func (c *RealClient) Push(path string) error {
	_, err := gitCmd(path, "push")
	return err
}
