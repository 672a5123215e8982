// Package httpapi exposes the orchestrator over HTTP+JSON. Errors are
// rendered as RFC 7807 problem documents with the status code carried by
// the typed error.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cadenza-ai/cadenza/pkg/errors"
	"github.com/cadenza-ai/cadenza/pkg/orchestrator"
	"github.com/cadenza-ai/cadenza/pkg/schema"
	"github.com/cadenza-ai/cadenza/pkg/template"
)

// Server routes HTTP+JSON requests to the orchestrator.
type Server struct {
	orch    *orchestrator.Orchestrator
	version string
}

// New creates the HTTP binding for the given orchestrator.
func New(orch *orchestrator.Orchestrator, version string) *Server {
	return &Server{orch: orch, version: version}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/skills", s.handleListSkills)
	mux.HandleFunc("GET /api/v1/skills/{name}", s.handleGetSkill)
	mux.HandleFunc("GET /api/v1/templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/v1/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("POST /api/v1/templates", s.handleRegisterTemplate)
	mux.HandleFunc("POST /api/v1/execute", s.handleExecute)
	mux.HandleFunc("POST /api/v1/execute/workflow", s.handleExecuteWorkflow)
	mux.HandleFunc("GET /api/v1/info", s.handleInfo)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	return logRequests(mux)
}

func (s *Server) handleListSkills(w http.ResponseWriter, _ *http.Request) {
	skills := s.orch.Skills().List()
	defs := make([]any, 0, len(skills))
	for _, sk := range skills {
		defs = append(defs, sk.Definition)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"skills": defs,
		"total":  len(defs),
	})
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	sk, err := s.orch.Skills().Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sk.Definition)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	summaries := s.orch.Templates().List()
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": summaries,
		"total":     len(summaries),
	})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.orch.Templates().Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          tmpl.ID,
		"name":        tmpl.Name,
		"description": tmpl.Description,
		"category":    tmpl.Category,
		"parameters":  tmpl.Parameters,
		"step_count":  len(tmpl.Steps),
		"steps":       tmpl.Steps,
	})
}

// registerTemplateRequest is the body of POST /api/v1/templates.
type registerTemplateRequest struct {
	TemplateID  string             `json:"template_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Category    template.Category  `json:"category"`
	Parameters  schema.Schema      `json:"parameters"`
	Steps       []template.StepDef `json:"steps"`
}

func (s *Server) handleRegisterTemplate(w http.ResponseWriter, r *http.Request) {
	var req registerTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tmpl := &template.Template{
		ID:          req.TemplateID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Parameters:  req.Parameters,
		Steps:       req.Steps,
	}
	if err := s.orch.Templates().Register(tmpl); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":      "success",
		"template_id": tmpl.ID,
	})
}

// executeRequest is the body of POST /api/v1/execute.
type executeRequest struct {
	RequestType string         `json:"request_type"`
	Parameters  map[string]any `json:"parameters"`
	ExecutionID string         `json:"execution_id"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RequestType == "" {
		writeError(w, errors.Invalid("request_type is required"))
		return
	}
	exec, err := s.orch.Execute(r.Context(), req.RequestType, req.Parameters, req.ExecutionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

// workflowRequest is the body of POST /api/v1/execute/workflow.
type workflowRequest struct {
	Name  string             `json:"name"`
	Steps []template.StepDef `json:"steps"`
}

func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Steps) == 0 {
		writeError(w, errors.Invalid("workflow has no steps"))
		return
	}
	exec, err := s.orch.ExecuteWorkflow(r.Context(), req.Name, req.Steps)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	info := s.orch.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":                "cadenza",
		"version":             s.version,
		"total_skills":        info.TotalSkills,
		"total_templates":     info.TotalTemplates,
		"available_skills":    info.AvailableSkills,
		"available_templates": info.AvailableTemplates,
		"has_session_manager": info.HasSessionManager,
		"has_search_engine":   info.HasSearchEngine,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, message := s.orch.Health()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"message": message,
	})
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Invalid("invalid body")
	}
	if len(body) == 0 {
		return nil, errors.Invalid("empty body")
	}
	return body, nil
}

func decodeJSON(r *http.Request, target any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.Invalid(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	ce := errors.AsCadenzaError(err)
	detail := ce.Message
	if ce.Err != nil {
		detail = ce.Err.Error()
	}
	body := map[string]interface{}{
		"type":   "about:blank",
		"title":  string(ce.Code),
		"detail": detail,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(ce.StatusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// logRequests wraps the mux with access logging.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		slog.InfoContext(r.Context(), "http.request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", recorder.status),
			slog.Duration("duration", time.Since(started)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
