package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"repochat/internal/api"
	"repochat/internal/chat"
	"repochat/internal/git"
	"repochat/internal/llm"
	"repochat/internal/store"
)

// modelRefreshInterval controls how often provider model lists are re-fetched.
const modelRefreshInterval = 24 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the repository chat dashboard",
	Long:  "Start the HTTP server for the web dashboard.\nBy default it listens on port 8080. Use --port to change it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := viper.GetInt("port")

		s, err := store.NewJSONStore(viper.GetString("data_dir"))
		if err != nil {
			return fmt.Errorf("open data dir: %w", err)
		}

		factory := llm.DefaultFactory{}
		models := llm.NewModelCache(factory)

		srv, err := api.NewServer(api.Config{
			Store:   s,
			Git:     git.NewClient(),
			Factory: factory,
			Models:  models,
			Defaults: chat.Defaults{
				Provider:    viper.GetString("ai.default_provider"),
				Model:       viper.GetString("ai.default_model"),
				AuthorName:  viper.GetString("git.user_name"),
				AuthorEmail: viper.GetString("git.user_email"),
			},
			UploadsDir: s.UploadsDir(),
			CloneDir:   filepath.Join(s.Dir(), "repos"),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize dashboard: %w", err)
		}

		ctx := cmd.Context()
		models.RefreshAll(ctx)
		go refreshModels(ctx, models)

		addr := fmt.Sprintf(":%d", port)
		fmt.Printf("Serving dashboard at http://localhost%s\n", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

// refreshModels re-fetches provider model lists once a day so dropdowns
// stay current without restarting the server.
func refreshModels(ctx context.Context, models *llm.ModelCache) {
	ticker := time.NewTicker(modelRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Info("refreshing provider model lists")
			models.RefreshAll(ctx)
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
