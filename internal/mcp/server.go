// Package mcp exposes the dashboard's data as MCP tools over stdio, so
// coding agents can inspect registered repositories and chat history.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"repochat/internal/git"
	"repochat/internal/store"
)

// Server wraps the repochat data layer and exposes it as MCP tools.
type Server struct {
	store store.Store
	git   git.Client
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, gc git.Client) *Server {
	return &Server{store: s, git: gc}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("repochat", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listRepositoriesTool())
	srv.AddTool(s.listChatsTool())
	srv.AddTool(s.getChatTool())
	srv.AddTool(s.gitLogTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// repochat_list_repositories
func (s *Server) listRepositoriesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("repochat_list_repositories",
		mcp.WithDescription("List all registered repositories. Returns a JSON array with name, local path, remote URL, branch, and account."),
	)
	return tool, s.handleListRepositories
}

func (s *Server) handleListRepositories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repos, err := s.store.ListRepos()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list repositories: %v", err)), nil
	}

	type repoOut struct {
		Name      string `json:"name"`
		LocalPath string `json:"localPath"`
		RepoURL   string `json:"gitRepoURL"`
		Branch    string `json:"branch"`
		Account   string `json:"account"`
	}

	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]repoOut, 0, len(names))
	for _, name := range names {
		cfg := repos[name]
		out = append(out, repoOut{
			Name:      name,
			LocalPath: cfg.LocalPath,
			RepoURL:   cfg.RepoURL,
			Branch:    cfg.Branch,
			Account:   cfg.Account,
		})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal repositories: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// repochat_list_chats
func (s *Server) listChatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("repochat_list_chats",
		mcp.WithDescription("List the chat sessions of a repository. Returns a JSON array with number, status, provider, model, and message count."),
		mcp.WithString("repository", mcp.Required(), mcp.Description("Repository name")),
	)
	return tool, s.handleListChats
}

func (s *Server) handleListChats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoName, err := request.RequireString("repository")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repository"), nil
	}

	if _, err := s.store.GetRepo(repoName); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository not found: %s", repoName)), nil
	}

	chats, err := s.store.LoadChats(repoName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load chats: %v", err)), nil
	}

	type chatOut struct {
		Number       int    `json:"number"`
		Status       string `json:"status"`
		Provider     string `json:"aiProvider"`
		Model        string `json:"aiModel"`
		MessageCount int    `json:"messageCount"`
	}

	out := make([]chatOut, 0, len(chats))
	for key, c := range chats {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out = append(out, chatOut{
			Number:       n,
			Status:       c.Status,
			Provider:     c.AIProvider,
			Model:        c.AIModel,
			MessageCount: len(c.ChatHistory),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal chats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// repochat_get_chat
func (s *Server) getChatTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("repochat_get_chat",
		mcp.WithDescription("Get one chat session including its full message history, commit summaries, and attached files."),
		mcp.WithString("repository", mcp.Required(), mcp.Description("Repository name")),
		mcp.WithNumber("number", mcp.Required(), mcp.Description("Chat number")),
	)
	return tool, s.handleGetChat
}

func (s *Server) handleGetChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoName, err := request.RequireString("repository")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repository"), nil
	}
	number, err := request.RequireInt("number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: number"), nil
	}

	c, err := s.store.GetChat(repoName, number)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat not found: %s #%d", repoName, number)), nil
	}

	data, err := json.Marshal(c)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal chat: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// repochat_git_log
func (s *Server) gitLogTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("repochat_git_log",
		mcp.WithDescription("Get recent commits of a repository's working tree, including parent hashes for graph rendering."),
		mcp.WithString("repository", mcp.Required(), mcp.Description("Repository name")),
	)
	return tool, s.handleGitLog
}

func (s *Server) handleGitLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoName, err := request.RequireString("repository")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repository"), nil
	}

	cfg, err := s.store.GetRepo(repoName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("repository not found: %s", repoName)), nil
	}

	commits, err := s.git.CommitGraph(cfg.LocalPath, 50)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read git log: %v", err)), nil
	}

	data, err := json.Marshal(commits)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal commits: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
