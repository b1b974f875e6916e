package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
)

// Tool is an Eino tool that lets an agent search the knowledge base
// mid-conversation. The tool never fails the agent run: retrieval
// problems come back as speakable fallback text.
type Tool struct {
	searcher *Searcher
}

// searchInput is the JSON-serialisable input schema for Tool.
type searchInput struct {
	// Query is the caller's question to look up in the knowledge base.
	Query string `json:"query"`
}

// NewTool constructs a Tool around the given Searcher.
func NewTool(searcher *Searcher) *Tool {
	return &Tool{searcher: searcher}
}

// Name returns the tool name registered with the agent.
func (t *Tool) Name() string { return "search_knowledge_base" }

// Description returns the LLM-facing description of this tool.
func (t *Tool) Description() string {
	return "Searches the company knowledge base for information relevant to the caller's question. " +
		"Use this whenever the caller asks about products, pricing, policies, or support. " +
		"Returns the most relevant passages, or a short note when nothing matches."
}

// Info returns the Eino tool metadata including the JSON input schema.
func (t *Tool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: t.Name(),
		Desc: t.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The question to look up, phrased as the caller asked it.",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun performs the search and returns speakable text.
func (t *Tool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input searchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("search_knowledge_base: invalid input: %w", err)
	}
	if input.Query == "" {
		return "", fmt.Errorf("search_knowledge_base: query is required")
	}
	return t.searcher.SearchKnowledgeBase(ctx, input.Query), nil
}
