// Package chat drives one request/response exchange between a user and
// the configured LLM for a repository chat, including side effects on
// the repository working tree.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"repochat/internal/git"
	"repochat/internal/llm"
	"repochat/internal/models"
	"repochat/internal/reply"
	"repochat/internal/store"
)

// ErrGitSync marks a failed working-tree sync before the LLM call.
var ErrGitSync = errors.New("git sync failed")

// Defaults supplies values for fields a chat record leaves unset.
type Defaults struct {
	Provider    string
	Model       string
	AuthorName  string
	AuthorEmail string
}

// TurnInput is the user-supplied part of one chat turn.
type TurnInput struct {
	Message string
	// AttachedFiles replaces the chat's stored list wholesale when
	// ReplaceAttached is set; an empty replacement list is meaningful.
	AttachedFiles   []string
	ReplaceAttached bool
	// UploadedImages are stored-file relative paths from multipart
	// uploads, already written to disk by the caller.
	UploadedImages []string
}

// TurnResult is the outcome of a successful turn.
type TurnResult struct {
	Reply string
	Chat  *models.Chat
}

// Pipeline orchestrates a chat turn: load chat, build prompt, call the
// LLM, parse the reply, apply file writes, commit/push, append history,
// summarize, persist.
type Pipeline struct {
	Store    store.Store
	Git      git.Client
	Factory  llm.Factory
	Defaults Defaults
	Log      *slog.Logger
}

// Run executes one turn against repoName/chatNumber.
//
// Failure semantics: anything up to and including the first LLM call
// aborts the turn with no persistence beyond lastMessagesSent; commit
// and push failures are logged and swallowed; summary-call and final
// persistence failures propagate even though file writes and commits
// have already been applied to the working tree.
func (p *Pipeline) Run(ctx context.Context, repoName string, chatNumber int, in TurnInput) (*TurnResult, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}

	cfg, err := p.Store.GetRepo(repoName)
	if err != nil {
		return nil, err
	}
	chats, err := p.Store.LoadChats(repoName)
	if err != nil {
		return nil, err
	}
	key := strconv.Itoa(chatNumber)
	chat, ok := chats[key]
	if !ok {
		return nil, fmt.Errorf("chat %d in %q: %w", chatNumber, repoName, store.ErrNotFound)
	}

	if in.ReplaceAttached {
		chat.AttachedFiles = in.AttachedFiles
	}
	chat.UploadedImages = append(chat.UploadedImages, in.UploadedImages...)

	provider := chat.AIProvider
	if provider == "" {
		provider = p.Defaults.Provider
	}
	model := chat.AIModel
	if model == "" {
		model = p.Defaults.Model
	}

	// Blocking, non-retried: a sync failure aborts the whole turn
	// before any attached file is read.
	if _, err := p.Git.Pull(ctx, cfg.LocalPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGitSync, err)
	}

	msgs := BuildPrompt(cfg.LocalPath, chat.AgentInstructions, in.Message, chat.AttachedFiles, len(in.UploadedImages))

	// Durability write before the LLM call so the exact outbound
	// prompt is observable even if the call fails.
	chat.LastMessagesSent = msgs
	if err := p.Store.SaveChats(repoName, chats); err != nil {
		return nil, err
	}

	client, err := p.Factory.ClientFor(provider)
	if err != nil {
		return nil, err
	}
	replyText, err := client.Chat(ctx, model, msgs)
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	extracted := reply.ExtractFiles(replyText)
	summary, hasSummary := reply.ExtractCommitSummary(replyText)

	for _, f := range extracted {
		if err := writeExtractedFile(cfg.LocalPath, f); err != nil {
			return nil, err
		}
	}

	if hasSummary {
		p.commitAndPush(cfg.LocalPath, summary, chat.PushAfterCommit, log)
	}

	now := time.Now().Format(time.RFC3339)
	chat.ChatHistory = append(chat.ChatHistory,
		models.Turn{Role: "user", Content: in.Message, Timestamp: now, MessagesSent: msgs},
		models.Turn{Role: "assistant", Content: replyText, Timestamp: now},
	)

	// Second, independent LLM call; its failure propagates like the
	// first one even though file writes and commits already happened.
	exchangeSummary, err := client.Chat(ctx, model, buildSummaryPrompt(in.Message, replyText))
	if err != nil {
		return nil, fmt.Errorf("summary call: %w", err)
	}
	chat.SummaryHistory = append(chat.SummaryHistory, models.Summary{
		Content:   exchangeSummary,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	chat.ExtractedFiles = append(chat.ExtractedFiles, extracted...)
	if err := p.Store.SaveChats(repoName, chats); err != nil {
		return nil, err
	}

	return &TurnResult{Reply: replyText, Chat: chat}, nil
}

// writeExtractedFile materializes one extracted file under the working
// tree, creating parent directories as needed. Later files with the
// same path in the same reply overwrite earlier writes.
func writeExtractedFile(repoPath string, f models.ExtractedFile) error {
	target := filepath.Join(repoPath, filepath.FromSlash(f.Filename))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dirs for %s: %w", f.Filename, err)
	}
	if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.Filename, err)
	}
	return nil
}

// commitAndPush stages all changes and commits with the extracted
// summary, pushing only when the chat opts in. Failures here never fail
// the turn; the assistant reply is still returned to the user.
func (p *Pipeline) commitAndPush(repoPath, summary string, push bool, log *slog.Logger) {
	if err := p.Git.AddAll(repoPath); err != nil {
		log.Warn("git add failed", "path", repoPath, "error", err)
		return
	}
	if err := p.Git.Commit(repoPath, summary, p.Defaults.AuthorName, p.Defaults.AuthorEmail); err != nil {
		log.Warn("git commit failed", "path", repoPath, "error", err)
		return
	}
	if !push {
		return
	}
	if err := p.Git.Push(repoPath); err != nil {
		log.Warn("git push failed", "path", repoPath, "error", err)
	}
}
