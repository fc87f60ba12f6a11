// Package llm constructs chat clients for the supported providers and
// caches their available model lists.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"repochat/internal/models"
)

// ErrUnsupportedProvider is returned for provider names outside the
// provider table.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Client is a chat backend bound to one provider.
type Client interface {
	// Chat sends the full message list and returns the assistant's
	// reply text. No timeout or retry is applied here.
	Chat(ctx context.Context, model string, msgs []models.Message) (string, error)
	// ListModels returns the provider's available model IDs.
	ListModels(ctx context.Context) ([]string, error)
}

// Factory builds clients by provider name.
type Factory interface {
	ClientFor(provider string) (Client, error)
}

// providerInfo is one entry of the provider table. Adding a provider is
// a data change here, not a new branch.
type providerInfo struct {
	baseURL string
	keyEnv  string
	// anthropic uses its own SDK instead of the OpenAI wire format
	anthropic bool
}

var providers = map[string]providerInfo{
	"openai":     {baseURL: "https://api.openai.com/v1", keyEnv: "OPENAI_API_KEY"},
	"openrouter": {baseURL: "https://openrouter.ai/api/v1", keyEnv: "OPENROUTER_API_KEY"},
	"deepseek":   {baseURL: "https://api.deepseek.com", keyEnv: "DEEPSEEK_API_KEY"},
	"anthropic":  {keyEnv: "ANTHROPIC_API_KEY", anthropic: true},
}

// Providers returns the known provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultFactory builds real clients from the provider table, reading
// each provider's credential from its environment variable.
type DefaultFactory struct{}

func (DefaultFactory) ClientFor(provider string) (Client, error) {
	info, ok := providers[strings.ToLower(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	apiKey := os.Getenv(info.keyEnv)
	if info.anthropic {
		return newAnthropicClient(apiKey), nil
	}
	return newOpenAIClient(info.baseURL, apiKey), nil
}
