// Package builtin provides the skills and templates registered at startup:
// search, code_analysis, report_generation, llm_invoke, and sql_query, plus
// the pre-built templates that chain them.
package builtin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cadenza-ai/cadenza/pkg/llm"
	"github.com/cadenza-ai/cadenza/pkg/schema"
	"github.com/cadenza-ai/cadenza/pkg/search"
	"github.com/cadenza-ai/cadenza/pkg/skill"
	"github.com/cadenza-ai/cadenza/pkg/template"
)

// Deps carries the collaborators the builtin skills wrap. Nil members are
// allowed; the corresponding skill then fails at invocation time with a
// configuration error, which the orchestrator folds into the step result.
type Deps struct {
	Engine   search.Engine
	Provider llm.Provider
	Model    string
	DB       *sql.DB
}

// Register registers every builtin skill and template.
func Register(skills *skill.Registry, templates *template.Registry, deps Deps) error {
	for _, s := range Skills(deps) {
		if err := skills.Register(s); err != nil {
			return err
		}
	}
	for _, t := range Templates() {
		if err := templates.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Skills returns the builtin skills wired to the given collaborators.
func Skills(deps Deps) []*skill.Skill {
	return []*skill.Skill{
		SearchSkill(deps.Engine),
		CodeAnalysisSkill(),
		ReportSkill(),
		LLMSkill(deps.Provider, deps.Model),
		SQLSkill(deps.DB),
	}
}

// SearchSkill queries the search engine collaborator.
func SearchSkill(engine search.Engine) *skill.Skill {
	return &skill.Skill{
		Definition: skill.Definition{
			Name:        "search",
			Description: "Searches indexed content and returns ranked results.",
			InputSchema: schema.Schema{
				"query": {Type: schema.TypeString, Required: true, Description: "search query"},
				"limit": {Type: schema.TypeInteger, Default: 10, Description: "maximum results"},
			},
			OutputSchema: schema.Schema{
				"results": {Type: schema.TypeArray, Description: "ranked matches"},
				"total":   {Type: schema.TypeInteger, Description: "number of matches"},
				"context": {Type: schema.TypeString, Description: "concatenated match content for downstream steps"},
			},
			RequiredConfig: []string{"search.enabled"},
		},
		Handler: skill.HandlerFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if engine == nil {
				return nil, fmt.Errorf("search engine not configured")
			}
			query, _ := input["query"].(string)
			limit := intArg(input["limit"], 10)

			results, err := engine.Search(ctx, query, limit)
			if err != nil {
				return nil, fmt.Errorf("search failed: %w", err)
			}

			items := make([]any, 0, len(results))
			var contextParts []string
			for _, r := range results {
				items = append(items, map[string]any{
					"id":      r.Document.ID,
					"path":    r.Document.Path,
					"content": r.Document.Content,
					"score":   r.Score,
				})
				contextParts = append(contextParts, r.Document.Content)
			}
			return map[string]any{
				"results": items,
				"total":   len(items),
				"context": strings.Join(contextParts, "\n\n"),
			}, nil
		}),
	}
}

// CodeAnalysisSkill computes structural metrics over a code snippet.
func CodeAnalysisSkill() *skill.Skill {
	return &skill.Skill{
		Definition: skill.Definition{
			Name:        "code_analysis",
			Description: "Analyzes code content: line counts, comment density, and declared functions.",
			InputSchema: schema.Schema{
				"content":  {Type: schema.TypeString, Required: true, Description: "code to analyze"},
				"language": {Type: schema.TypeString, Description: "language hint; detected when absent"},
			},
			OutputSchema: schema.Schema{
				"language":      {Type: schema.TypeString},
				"total_lines":   {Type: schema.TypeInteger},
				"code_lines":    {Type: schema.TypeInteger},
				"comment_lines": {Type: schema.TypeInteger},
				"blank_lines":   {Type: schema.TypeInteger},
				"functions":     {Type: schema.TypeInteger},
				"summary":       {Type: schema.TypeString},
			},
		},
		Handler: skill.HandlerFunc(func(_ context.Context, input map[string]any) (map[string]any, error) {
			content, _ := input["content"].(string)
			language, _ := input["language"].(string)
			return analyzeCode(content, language), nil
		}),
	}
}

// ReportSkill renders a markdown report from a title and content.
func ReportSkill() *skill.Skill {
	return &skill.Skill{
		Definition: skill.Definition{
			Name:        "report_generation",
			Description: "Renders a report document from a title, optional sections, and content.",
			InputSchema: schema.Schema{
				"title":    {Type: schema.TypeString, Required: true},
				"content":  {Description: "report body; stringified when not already text"},
				"sections": {Type: schema.TypeArray, Description: "optional section headings with bodies"},
				"format":   {Type: schema.TypeString, Default: "markdown"},
			},
			OutputSchema: schema.Schema{
				"report":       {Type: schema.TypeString},
				"format":       {Type: schema.TypeString},
				"generated_at": {Type: schema.TypeString},
			},
		},
		Handler: skill.HandlerFunc(func(_ context.Context, input map[string]any) (map[string]any, error) {
			title, _ := input["title"].(string)
			format, _ := input["format"].(string)
			if format != "" && format != "markdown" && format != "text" {
				return nil, fmt.Errorf("unsupported report format: %s", format)
			}
			return map[string]any{
				"report":       renderReport(title, input["content"], input["sections"], format),
				"format":       formatOrDefault(format),
				"generated_at": time.Now().UTC().Format(time.RFC3339),
			}, nil
		}),
	}
}

// LLMSkill sends a prompt to the configured LLM provider.
func LLMSkill(provider llm.Provider, model string) *skill.Skill {
	return &skill.Skill{
		Definition: skill.Definition{
			Name:        "llm_invoke",
			Description: "Sends a prompt to the configured LLM and returns its response.",
			InputSchema: schema.Schema{
				"prompt":      {Type: schema.TypeString, Required: true},
				"system":      {Type: schema.TypeString, Description: "optional system message"},
				"model":       {Type: schema.TypeString, Description: "overrides the configured model"},
				"temperature": {Type: schema.TypeNumber},
			},
			OutputSchema: schema.Schema{
				"response":    {Type: schema.TypeString},
				"model":       {Type: schema.TypeString},
				"tokens_used": {Type: schema.TypeInteger},
			},
			RequiredConfig: []string{"llm.base_url", "llm.model"},
		},
		Handler: skill.HandlerFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if provider == nil {
				return nil, fmt.Errorf("llm provider not configured")
			}
			prompt, _ := input["prompt"].(string)
			reqModel, _ := input["model"].(string)
			if reqModel == "" {
				reqModel = model
			}
			var messages []llm.Message
			if system, _ := input["system"].(string); system != "" {
				messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
			}
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})

			req := llm.ChatRequest{Model: reqModel, Messages: messages}
			if temp, ok := input["temperature"].(float64); ok {
				req.Temperature = temp
			}
			resp, err := provider.Chat(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("llm invocation failed: %w", err)
			}
			return map[string]any{
				"response":    resp.Content,
				"model":       reqModel,
				"tokens_used": resp.Usage.TotalTokens,
			}, nil
		}),
	}
}

// SQLSkill executes a read-only SQL statement against the configured
// database. Write statements are rejected before reaching the driver.
func SQLSkill(db *sql.DB) *skill.Skill {
	return &skill.Skill{
		Definition: skill.Definition{
			Name:        "sql_query",
			Description: "Executes a read-only SQL query and returns rows.",
			InputSchema: schema.Schema{
				"query": {Type: schema.TypeString, Required: true},
				"limit": {Type: schema.TypeInteger, Default: 100, Description: "maximum rows returned"},
			},
			OutputSchema: schema.Schema{
				"columns":   {Type: schema.TypeArray},
				"rows":      {Type: schema.TypeArray},
				"row_count": {Type: schema.TypeInteger},
			},
			RequiredConfig: []string{"database.driver", "database.dsn"},
		},
		Handler: skill.HandlerFunc(func(ctx context.Context, input map[string]any) (map[string]any, error) {
			if db == nil {
				return nil, fmt.Errorf("database not configured")
			}
			query, _ := input["query"].(string)
			if err := checkReadOnly(query); err != nil {
				return nil, err
			}
			limit := intArg(input["limit"], 100)
			return runQuery(ctx, db, query, limit)
		}),
	}
}

// checkReadOnly rejects anything that is not a read statement.
func checkReadOnly(query string) error {
	head := strings.ToLower(strings.TrimSpace(query))
	for _, prefix := range []string{"select", "with", "pragma", "explain"} {
		if strings.HasPrefix(head, prefix) {
			return nil
		}
	}
	return fmt.Errorf("only read-only statements are allowed")
}

func runQuery(ctx context.Context, db *sql.DB, query string, limit int) (map[string]any, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	cols := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = c
	}

	var out []any
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			row[c] = normalizeSQLValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return map[string]any{
		"columns":   cols,
		"rows":      out,
		"row_count": len(out),
	}, nil
}

func normalizeSQLValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// intArg converts a numeric argument (including JSON float64) to int.
func intArg(value any, fallback int) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func formatOrDefault(format string) string {
	if format == "" {
		return "markdown"
	}
	return format
}
