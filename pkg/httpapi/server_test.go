package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cadenza-ai/cadenza/pkg/builtin"
	"github.com/cadenza-ai/cadenza/pkg/llm"
	"github.com/cadenza-ai/cadenza/pkg/orchestrator"
	"github.com/cadenza-ai/cadenza/pkg/search"
	"github.com/cadenza-ai/cadenza/pkg/skill"
	"github.com/cadenza-ai/cadenza/pkg/template"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	engine := search.NewInMemoryEngine()
	err := engine.Index(context.Background(),
		search.Document{ID: "1", Path: "pkg/auth/auth.go", Content: "package auth\n\nfunc Verify() error { return nil }"},
	)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	skills := skill.NewRegistry()
	templates := template.NewRegistry(skills)
	deps := builtin.Deps{
		Engine:   engine,
		Provider: &llm.MockProvider{Response: "mock summary"},
		Model:    "llama3.2",
	}
	if err := builtin.Register(skills, templates, deps); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	orch := orchestrator.New(skills, templates, orchestrator.WithSearchEngine(engine))
	return New(orch, "test").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: invalid response JSON: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestListSkills(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/v1/skills", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	skills := body["skills"].([]any)
	if len(skills) != 5 {
		t.Fatalf("len(skills) = %d, want 5", len(skills))
	}
	if body["total"] != float64(len(skills)) {
		t.Errorf("total = %v, want %d", body["total"], len(skills))
	}
	names := map[string]bool{}
	for _, raw := range skills {
		def := raw.(map[string]any)
		names[def["name"].(string)] = true
	}
	for _, want := range []string{"search", "code_analysis", "report_generation", "llm_invoke", "sql_query"} {
		if !names[want] {
			t.Errorf("skill %q missing from listing", want)
		}
	}
}

func TestGetSkill(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/v1/skills/search", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["name"] != "search" {
		t.Errorf("name = %v, want search", body["name"])
	}
	if _, ok := body["input_schema"]; !ok {
		t.Error("response missing input_schema")
	}
}

func TestGetSkillNotFound(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/v1/skills/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
	if body["title"] != "NOT_FOUND" {
		t.Errorf("title = %v, want NOT_FOUND", body["title"])
	}
	if detail, _ := body["detail"].(string); !strings.Contains(detail, "unknown skill: nope") {
		t.Errorf("detail = %q, want unknown skill message", detail)
	}
}

func TestListTemplates(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/v1/templates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	templates := body["templates"].([]any)
	if len(templates) != 3 {
		t.Fatalf("len(templates) = %d, want 3", len(templates))
	}
	first := templates[0].(map[string]any)
	if _, ok := first["step_count"]; !ok {
		t.Error("summary missing step_count")
	}
	if _, ok := first["steps"]; ok {
		t.Error("summary must not expose step bodies")
	}
}

func TestRegisterAndGetTemplate(t *testing.T) {
	handler := newTestHandler(t)

	payload := map[string]any{
		"template_id": "t1",
		"name":        "T",
		"parameters": map[string]any{
			"query": map[string]any{"type": "string", "required": true},
		},
		"steps": []any{
			map[string]any{"skill": "search", "input": map[string]any{"query": "x"}},
		},
	}
	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/templates", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201; body = %v", rec.Code, body)
	}
	if body["status"] != "success" || body["template_id"] != "t1" {
		t.Errorf("register body = %v, want success/t1", body)
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/api/v1/templates/t1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	if body["id"] != "t1" || body["name"] != "T" {
		t.Errorf("template = %v/%v, want t1/T", body["id"], body["name"])
	}
	if body["step_count"] != float64(1) {
		t.Errorf("step_count = %v, want 1", body["step_count"])
	}

	// Same id again collides.
	rec, body = doJSON(t, handler, http.MethodPost, "/api/v1/templates", payload)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", rec.Code)
	}
	if body["title"] != "CONFLICT" {
		t.Errorf("title = %v, want CONFLICT", body["title"])
	}
}

func TestRegisterTemplateUnknownSkill(t *testing.T) {
	handler := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/v1/templates", map[string]any{
		"template_id": "bad",
		"steps":       []any{map[string]any{"skill": "nope"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExecuteTemplate(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/execute", map[string]any{
		"request_type": "code_search",
		"parameters":   map[string]any{"query": "auth"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %v", rec.Code, body)
	}
	if body["status"] != "completed" {
		t.Errorf("status = %v, want completed", body["status"])
	}
	if body["execution_id"] == "" || body["execution_id"] == nil {
		t.Error("execution_id missing")
	}
	details := body["step_details"].([]any)
	if len(details) != 2 {
		t.Fatalf("len(step_details) = %d, want 2", len(details))
	}
}

func TestExecuteMissingParameter(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/execute", map[string]any{
		"request_type": "code_search",
		"parameters":   map[string]any{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if detail, _ := body["detail"].(string); !strings.Contains(detail, "missing required parameter: query") {
		t.Errorf("detail = %q, want missing parameter message", detail)
	}
}

func TestExecuteUnknownTemplate(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/execute", map[string]any{
		"request_type": "nope",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if detail, _ := body["detail"].(string); !strings.Contains(detail, "unknown template: nope") {
		t.Errorf("detail = %q, want unknown template message", detail)
	}
}

func TestExecuteWorkflow(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/execute/workflow", map[string]any{
		"name": "quick-search",
		"steps": []any{
			map[string]any{
				"skill":    "search",
				"input":    map[string]any{"query": "auth"},
				"on_error": "continue",
			},
		},
	})
	if rec.Code >= 300 {
		t.Fatalf("status = %d, want success; body = %v", rec.Code, body)
	}
	details := body["step_details"].([]any)
	if len(details) != 1 {
		t.Fatalf("len(step_details) = %d, want 1", len(details))
	}
	step := details[0].(map[string]any)
	if step["skill"] != "search" {
		t.Errorf("step skill = %v, want search", step["skill"])
	}
	if step["step_id"] != "step_1" {
		t.Errorf("step_id = %v, want step_1", step["step_id"])
	}
}

func TestExecuteWorkflowRejectsEmpty(t *testing.T) {
	handler := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/v1/execute/workflow", map[string]any{
		"name": "empty",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExecuteEmptyBody(t *testing.T) {
	handler := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/v1/execute", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestInfoMatchesListings(t *testing.T) {
	handler := newTestHandler(t)

	_, skillsBody := doJSON(t, handler, http.MethodGet, "/api/v1/skills", nil)
	_, templatesBody := doJSON(t, handler, http.MethodGet, "/api/v1/templates", nil)
	rec, info := doJSON(t, handler, http.MethodGet, "/api/v1/info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if info["total_skills"] != skillsBody["total"] {
		t.Errorf("total_skills = %v, want %v", info["total_skills"], skillsBody["total"])
	}
	if info["total_templates"] != templatesBody["total"] {
		t.Errorf("total_templates = %v, want %v", info["total_templates"], templatesBody["total"])
	}
	available := info["available_skills"].([]any)
	if len(available) != int(skillsBody["total"].(float64)) {
		t.Errorf("available_skills count = %d, want %v", len(available), skillsBody["total"])
	}
	if info["has_search_engine"] != true {
		t.Error("has_search_engine = false, want true")
	}
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}
