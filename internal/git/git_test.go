package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	cmds := [][]string{
		{"git", "-C", dir, "init"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func commitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	require.NoError(t, exec.Command("git", "-C", dir, "add", ".").Run())
	require.NoError(t, exec.Command("git", "-C", dir, "commit", "-m", message).Run())
}

func TestCurrentRevisionAndBranch(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "hello", "init")

	c := NewClient()

	rev, err := c.CurrentRevision(dir)
	require.NoError(t, err)
	assert.Len(t, rev, 40)

	branch, err := c.CurrentBranch(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, branch)
}

func TestCommits(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "one", "first commit")
	commitFile(t, dir, "b.txt", "two", "second commit")

	c := NewClient()
	commits, err := c.Commits(dir, 0)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	// Newest first.
	assert.Equal(t, "second commit", commits[0].Message)
	assert.Equal(t, "first commit", commits[1].Message)
	assert.Equal(t, "Test", commits[0].Author)
}

func TestCommitGraph_Parents(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "one", "first")
	commitFile(t, dir, "b.txt", "two", "second")

	c := NewClient()
	graph, err := c.CommitGraph(dir, 0)
	require.NoError(t, err)
	require.Len(t, graph, 2)

	assert.Len(t, graph[0].Parents, 1)
	assert.Equal(t, graph[1].Hash, graph[0].Parents[0])
	assert.Empty(t, graph[1].Parents)
}

func TestParseCommitGraph(t *testing.T) {
	input := "abc\tdef 123\tJoe\t2026-01-02 10:00:00 +0000\tmerge it\n" +
		"def\t\tJoe\t2026-01-01 10:00:00 +0000\troot commit"

	commits := ParseCommitGraph(input)
	require.Len(t, commits, 2)

	assert.Equal(t, []string{"def", "123"}, commits[0].Parents)
	assert.Equal(t, "merge it", commits[0].Message)
	assert.Nil(t, commits[1].Parents)
}

func TestCommit_WithIdentity(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, exec.Command("git", "-C", dir, "init").Run())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.txt"), []byte("x"), 0o644))

	c := NewClient()
	require.NoError(t, c.AddAll(dir))
	require.NoError(t, c.Commit(dir, `say "hi"`, "Agent", "agent@example.com"))

	commits, err := c.Commits(dir, 1)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, `say "hi"`, commits[0].Message)
	assert.Equal(t, "Agent", commits[0].Author)
}

func TestBranchCheckout(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	commitFile(t, dir, "a.txt", "x", "init")

	c := NewClient()
	base, err := c.CurrentBranch(dir)
	require.NoError(t, err)

	require.NoError(t, c.CreateBranch(dir, "feature/x"))
	branch, err := c.CurrentBranch(dir)
	require.NoError(t, err)
	assert.Equal(t, "feature/x", branch)

	require.NoError(t, c.Checkout(dir, base))

	branches, err := c.BranchList(dir)
	require.NoError(t, err)
	assert.Contains(t, branches, "feature/x")
	assert.Contains(t, branches, base)
}
