package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repochat/internal/git"
	"repochat/internal/llm"
	"repochat/internal/models"
	"repochat/internal/store"
)

// mockGit records mutation calls and lets tests fail selected ones.
type mockGit struct {
	pullErr error

	pulls   int
	adds    int
	commits []string
	pushes  int

	commitErr error
}

func (m *mockGit) CurrentRevision(string) (string, error)              { return "deadbeef", nil }
func (m *mockGit) LastCommitDate(string) (time.Time, error)            { return time.Time{}, nil }
func (m *mockGit) CurrentBranch(string) (string, error)                { return "main", nil }
func (m *mockGit) BranchList(string) ([]string, error)                 { return []string{"main"}, nil }
func (m *mockGit) Commits(string, int) ([]git.Commit, error)           { return nil, nil }
func (m *mockGit) CommitGraph(string, int) ([]git.GraphCommit, error)  { return nil, nil }
func (m *mockGit) Clone(context.Context, string, string) error         { return nil }
func (m *mockGit) Checkout(string, string) error                       { return nil }
func (m *mockGit) CreateBranch(string, string) error                   { return nil }

func (m *mockGit) Pull(context.Context, string) (string, error) {
	m.pulls++
	return "Already up to date.", m.pullErr
}

func (m *mockGit) AddAll(string) error { m.adds++; return nil }

func (m *mockGit) Commit(_ string, message, _, _ string) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commits = append(m.commits, message)
	return nil
}

func (m *mockGit) Push(string) error { m.pushes++; return nil }

// scriptedClient returns canned replies in order.
type scriptedClient struct {
	replies []string
	errs    []error
	calls   int
}

func (c *scriptedClient) Chat(context.Context, string, []models.Message) (string, error) {
	i := c.calls
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i >= len(c.replies) {
		return "", errors.New("no scripted reply")
	}
	return c.replies[i], nil
}

func (c *scriptedClient) ListModels(context.Context) ([]string, error) { return nil, nil }

type stubFactory struct{ client llm.Client }

func (f stubFactory) ClientFor(string) (llm.Client, error) { return f.client, nil }

func setupPipeline(t *testing.T, g git.Client, client llm.Client) (*Pipeline, *store.JSONStore, string) {
	t.Helper()

	repoDir := t.TempDir()
	s, err := store.NewJSONStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.PutRepo("myrepo", &models.RepoConfig{LocalPath: repoDir, Branch: "main"}))
	require.NoError(t, s.SaveChats("myrepo", map[string]*models.Chat{
		"1": {Status: models.StatusActive, AgentInstructions: "be brief"},
	}))

	p := &Pipeline{
		Store:   s,
		Git:     g,
		Factory: stubFactory{client: client},
		Defaults: Defaults{
			Provider:    "openai",
			Model:       "o3",
			AuthorName:  "Agent",
			AuthorEmail: "agent@example.com",
		},
	}
	return p, s, repoDir
}

func TestRun_PlainReply(t *testing.T) {
	g := &mockGit{}
	client := &scriptedClient{replies: []string{"sure, here is advice", "the user asked for advice"}}
	p, s, _ := setupPipeline(t, g, client)

	res, err := p.Run(context.Background(), "myrepo", 1, TurnInput{Message: "help me"})
	require.NoError(t, err)

	assert.Equal(t, "sure, here is advice", res.Reply)
	assert.Equal(t, 1, g.pulls)
	assert.Empty(t, g.commits)
	assert.Zero(t, g.pushes)

	chat, err := s.GetChat("myrepo", 1)
	require.NoError(t, err)
	require.Len(t, chat.ChatHistory, 2)
	assert.Equal(t, "user", chat.ChatHistory[0].Role)
	assert.Equal(t, "help me", chat.ChatHistory[0].Content)
	assert.NotEmpty(t, chat.ChatHistory[0].MessagesSent)
	assert.Equal(t, "assistant", chat.ChatHistory[1].Role)
	require.Len(t, chat.SummaryHistory, 1)
	assert.Equal(t, "the user asked for advice", chat.SummaryHistory[0].Content)
}

func TestRun_UnknownChat(t *testing.T) {
	p, _, _ := setupPipeline(t, &mockGit{}, &scriptedClient{})

	_, err := p.Run(context.Background(), "myrepo", 99, TurnInput{Message: "hi"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_UnknownRepo(t *testing.T) {
	p, _, _ := setupPipeline(t, &mockGit{}, &scriptedClient{})

	_, err := p.Run(context.Background(), "ghost", 1, TurnInput{Message: "hi"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRun_PullFailureAbortsTurn(t *testing.T) {
	g := &mockGit{pullErr: errors.New("remote unreachable")}
	client := &scriptedClient{replies: []string{"should never be reached"}}
	p, s, _ := setupPipeline(t, g, client)

	_, err := p.Run(context.Background(), "myrepo", 1, TurnInput{Message: "hi"})
	assert.ErrorIs(t, err, ErrGitSync)
	assert.Zero(t, client.calls)

	chat, err := s.GetChat("myrepo", 1)
	require.NoError(t, err)
	assert.Empty(t, chat.ChatHistory)
}

func TestRun_LastMessagesSentPersistedBeforeLLMFailure(t *testing.T) {
	g := &mockGit{}
	client := &scriptedClient{errs: []error{errors.New("provider down")}}
	p, s, _ := setupPipeline(t, g, client)

	_, err := p.Run(context.Background(), "myrepo", 1, TurnInput{Message: "hi"})
	require.Error(t, err)

	chat, err := s.GetChat("myrepo", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, chat.LastMessagesSent, "outbound prompt must be durable before the call")
	assert.Empty(t, chat.ChatHistory, "no history append on failure")
}

func replyWithCommit(filename, content, summary string) string {
	return "A. Commit Summary\n" + summary + "\nB. Files\n" +
		"===== Start of file: " + filename + " =====\n" +
		content + "\n" +
		"===== End of file: " + filename + " =====\n"
}

func TestRun_ExtractedFilesWrittenAndCommitted(t *testing.T) {
	g := &mockGit{}
	client := &scriptedClient{replies: []string{
		replyWithCommit("pkg/util.go", "package pkg", "Add util package"),
		"summary of exchange",
	}}
	p, s, repoDir := setupPipeline(t, g, client)

	// Enable push for this chat.
	chats, err := s.LoadChats("myrepo")
	require.NoError(t, err)
	chats["1"].PushAfterCommit = true
	require.NoError(t, s.SaveChats("myrepo", chats))

	res, err := p.Run(context.Background(), "myrepo", 1, TurnInput{Message: "write util"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(repoDir, "pkg", "util.go"))
	require.NoError(t, err)
	assert.Equal(t, "package pkg", string(data))

	require.Len(t, g.commits, 1)
	assert.Equal(t, "Add util package", g.commits[0])
	assert.Equal(t, 1, g.pushes)

	require.Len(t, res.Chat.ExtractedFiles, 1)
	assert.Equal(t, "pkg/util.go", res.Chat.ExtractedFiles[0].Filename)
}

func TestRun_PushSkippedWhenDisabled(t *testing.T) {
	g := &mockGit{}
	client := &scriptedClient{replies: []string{
		replyWithCommit("a.txt", "hello", "Add a.txt"),
		"summary",
	}}
	p, _, _ := setupPipeline(t, g, client)

	_, err := p.Run(context.Background(), "myrepo", 1, TurnInput{Message: "go"})
	require.NoError(t, err)

	assert.Len(t, g.commits, 1, "commit still happens")
	assert.Zero(t, g.pushes, "push must not be attempted")
}

func TestRun_CommitFailureSwallowed(t *testing.T) {
	g := &mockGit{commitErr: errors.New("nothing to commit")}
	client := &scriptedClient{replies: []string{
		replyWithCommit("a.txt", "hello", "Add a.txt"),
		"summary",
	}}
	p, _, _ := setupPipeline(t, g, client)

	res, err := p.Run(context.Background(), "myrepo", 1, TurnInput{Message: "go"})
	require.NoError(t, err, "commit failure must not fail the turn")
	assert.Contains(t, res.Reply, "Commit Summary")
}

func TestRun_NoSummaryNoCommit(t *testing.T) {
	g := &mockGit{}
	client := &scriptedClient{replies: []string{"chatty reply, no sections", "summary"}}
	p, _, _ := setupPipeline(t, g, client)

	_, err := p.Run(context.Background(), "myrepo", 1, TurnInput{Message: "chat"})
	require.NoError(t, err)
	assert.Zero(t, g.adds)
	assert.Empty(t, g.commits)
}

func TestRun_ReplaceAttachedFiles(t *testing.T) {
	g := &mockGit{}
	client := &scriptedClient{replies: []string{"ok", "summary"}}
	p, s, repoDir := setupPipeline(t, g, client)

	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "kept.txt"), []byte("data"), 0o644))

	_, err := p.Run(context.Background(), "myrepo", 1, TurnInput{
		Message:         "look",
		AttachedFiles:   []string{"kept.txt"},
		ReplaceAttached: true,
	})
	require.NoError(t, err)

	chat, err := s.GetChat("myrepo", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.txt"}, chat.AttachedFiles)
}

func TestRun_SummaryFailurePropagatesAfterSideEffects(t *testing.T) {
	g := &mockGit{}
	client := &scriptedClient{
		replies: []string{replyWithCommit("b.txt", "body", "Add b.txt"), ""},
		errs:    []error{nil, errors.New("summary provider down")},
	}
	p, s, repoDir := setupPipeline(t, g, client)

	_, err := p.Run(context.Background(), "myrepo", 1, TurnInput{Message: "go"})
	require.Error(t, err)

	// File write and commit already happened and are not rolled back.
	_, statErr := os.Stat(filepath.Join(repoDir, "b.txt"))
	assert.NoError(t, statErr)
	assert.Len(t, g.commits, 1)

	// But the exchange was never persisted to history.
	chat, chatErr := s.GetChat("myrepo", 1)
	require.NoError(t, chatErr)
	assert.Empty(t, chat.ChatHistory)
}
