package cmd

import (
	"github.com/spf13/cobra"

	"repochat/internal/git"
	"repochat/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for coding-agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP-capable coding agents query repochat natively for
registered repositories, chat history, and git logs. Configure it as:

  {
    "mcpServers": {
      "repochat": { "command": "repochat", "args": ["mcp"] }
    }
  }

Available tools: repochat_list_repositories, repochat_list_chats,
repochat_get_chat, repochat_git_log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(s, git.NewClient())
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
