package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/edgard/companionbot/internal/agent"
)

func newSearchTool(deps Deps) (agent.Tool, error) {
	if deps.Searcher == nil {
		return agent.Tool{}, errors.New("searcher is required")
	}

	return agent.Tool{
		Name: SearchName,
		Description: "Searches the web for current events and facts. " +
			"Input: a search query. Output: a short answer.",
		Run: func(ctx context.Context, input string) (string, error) {
			query := strings.TrimSpace(input)
			if query == "" {
				return "", errors.New("search query is empty")
			}
			return deps.Searcher.Search(ctx, query)
		},
	}, nil
}
