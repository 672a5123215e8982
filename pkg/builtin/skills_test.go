package builtin

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/cadenza-ai/cadenza/pkg/llm"
	"github.com/cadenza-ai/cadenza/pkg/search"
	"github.com/cadenza-ai/cadenza/pkg/skill"
	"github.com/cadenza-ai/cadenza/pkg/template"
)

func seededEngine(t *testing.T) *search.InMemoryEngine {
	t.Helper()
	engine := search.NewInMemoryEngine()
	err := engine.Index(context.Background(),
		search.Document{ID: "1", Path: "auth/login.go", Content: "func Login handles authentication"},
		search.Document{ID: "2", Path: "auth/token.go", Content: "func IssueToken signs a session token"},
		search.Document{ID: "3", Path: "docs/readme.md", Content: "project overview"},
	)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	return engine
}

func TestRegisterBuiltins(t *testing.T) {
	skills := skill.NewRegistry()
	templates := template.NewRegistry(skills)

	if err := Register(skills, templates, Deps{Engine: search.NewInMemoryEngine()}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for _, name := range []string{"search", "code_analysis", "report_generation", "llm_invoke", "sql_query"} {
		if !skills.Has(name) {
			t.Errorf("skill %q not registered", name)
		}
	}
	for _, id := range []string{"code_search", "code_analysis", "research_report"} {
		if _, err := templates.Get(id); err != nil {
			t.Errorf("template %q not registered: %v", id, err)
		}
	}
}

func TestSearchSkill(t *testing.T) {
	sk := SearchSkill(seededEngine(t))

	output, err := sk.Handler.Invoke(context.Background(), map[string]any{
		"query": "authentication login",
		"limit": float64(2),
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	results, ok := output["results"].([]any)
	if !ok || len(results) == 0 {
		t.Fatalf("results = %v, want non-empty slice", output["results"])
	}
	top := results[0].(map[string]any)
	if top["path"] != "auth/login.go" {
		t.Errorf("top result path = %v, want auth/login.go", top["path"])
	}
	if output["total"] != len(results) {
		t.Errorf("total = %v, want %d", output["total"], len(results))
	}
	if ctxText, _ := output["context"].(string); !strings.Contains(ctxText, "authentication") {
		t.Errorf("context = %q, want match content included", ctxText)
	}
}

func TestSearchSkillNoEngine(t *testing.T) {
	sk := SearchSkill(nil)
	if _, err := sk.Handler.Invoke(context.Background(), map[string]any{"query": "x"}); err == nil {
		t.Fatal("Invoke() with nil engine should fail")
	}
}

func TestCodeAnalysisSkill(t *testing.T) {
	content := `package auth

// Login validates credentials.
func Login(user, pass string) error {
	return nil
}

func Logout() {}
`
	sk := CodeAnalysisSkill()
	output, err := sk.Handler.Invoke(context.Background(), map[string]any{"content": content})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if output["language"] != "go" {
		t.Errorf("language = %v, want go", output["language"])
	}
	if output["functions"] != 2 {
		t.Errorf("functions = %v, want 2", output["functions"])
	}
	if output["comment_lines"] != 1 {
		t.Errorf("comment_lines = %v, want 1", output["comment_lines"])
	}
	if summary, _ := output["summary"].(string); !strings.Contains(summary, "2 functions") {
		t.Errorf("summary = %q, want function count mentioned", summary)
	}
}

func TestReportSkill(t *testing.T) {
	sk := ReportSkill()
	output, err := sk.Handler.Invoke(context.Background(), map[string]any{
		"title":   "Weekly Summary",
		"content": "all green",
		"sections": []any{
			map[string]any{"name": "Status", "body": "nominal"},
		},
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	report, _ := output["report"].(string)
	if !strings.HasPrefix(report, "# Weekly Summary") {
		t.Errorf("report = %q, want markdown title heading", report)
	}
	if !strings.Contains(report, "## Status") || !strings.Contains(report, "nominal") {
		t.Errorf("report = %q, want rendered section", report)
	}
	if !strings.Contains(report, "all green") {
		t.Errorf("report = %q, want content body", report)
	}
	if output["format"] != "markdown" {
		t.Errorf("format = %v, want markdown", output["format"])
	}
}

func TestReportSkillStringifiesStructuredContent(t *testing.T) {
	sk := ReportSkill()
	output, err := sk.Handler.Invoke(context.Background(), map[string]any{
		"title":   "Matches",
		"content": []any{map[string]any{"path": "a.go"}},
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if report, _ := output["report"].(string); !strings.Contains(report, `"path": "a.go"`) {
		t.Errorf("report = %q, want JSON-rendered content", report)
	}
}

func TestReportSkillRejectsUnknownFormat(t *testing.T) {
	sk := ReportSkill()
	if _, err := sk.Handler.Invoke(context.Background(), map[string]any{"title": "x", "format": "pdf"}); err == nil {
		t.Fatal("Invoke() with unsupported format should fail")
	}
}

func TestLLMSkill(t *testing.T) {
	provider := &llm.MockProvider{Response: "summary text"}
	sk := LLMSkill(provider, "llama3.2")

	output, err := sk.Handler.Invoke(context.Background(), map[string]any{"prompt": "summarize"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if output["response"] != "summary text" {
		t.Errorf("response = %v, want summary text", output["response"])
	}
	if output["model"] != "llama3.2" {
		t.Errorf("model = %v, want configured default", output["model"])
	}
	if output["tokens_used"] != 20 {
		t.Errorf("tokens_used = %v, want 20", output["tokens_used"])
	}
}

func TestLLMSkillProviderFailure(t *testing.T) {
	sk := LLMSkill(&llm.FailingMockProvider{Err: errors.New("connection refused")}, "llama3.2")
	if _, err := sk.Handler.Invoke(context.Background(), map[string]any{"prompt": "x"}); err == nil {
		t.Fatal("Invoke() should surface provider error")
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", t.TempDir()+"/skill.db")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO users (name) VALUES ('ana'), ('bo'), ('cy')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return db
}

func TestSQLSkill(t *testing.T) {
	sk := SQLSkill(openTestDB(t))

	output, err := sk.Handler.Invoke(context.Background(), map[string]any{
		"query": "SELECT name FROM users ORDER BY name",
		"limit": float64(2),
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if output["row_count"] != 2 {
		t.Fatalf("row_count = %v, want 2 (limit applied)", output["row_count"])
	}
	rows := output["rows"].([]any)
	first := rows[0].(map[string]any)
	if first["name"] != "ana" {
		t.Errorf("first row name = %v, want ana", first["name"])
	}
}

func TestSQLSkillRejectsWrites(t *testing.T) {
	sk := SQLSkill(openTestDB(t))
	for _, query := range []string{
		"DELETE FROM users",
		"UPDATE users SET name = 'x'",
		"DROP TABLE users",
		"  insert into users (name) values ('evil')",
	} {
		if _, err := sk.Handler.Invoke(context.Background(), map[string]any{"query": query}); err == nil {
			t.Errorf("Invoke(%q) should be rejected", query)
		}
	}
}

func TestSQLSkillAllowsReadStatements(t *testing.T) {
	sk := SQLSkill(openTestDB(t))
	for _, query := range []string{
		"select count(*) as n from users",
		"WITH t AS (SELECT 1 AS x) SELECT x FROM t",
		"EXPLAIN SELECT 1",
	} {
		if _, err := sk.Handler.Invoke(context.Background(), map[string]any{"query": query}); err != nil {
			t.Errorf("Invoke(%q) error = %v", query, err)
		}
	}
}
