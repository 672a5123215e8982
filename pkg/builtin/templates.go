package builtin

import (
	"github.com/cadenza-ai/cadenza/pkg/schema"
	"github.com/cadenza-ai/cadenza/pkg/template"
)

// Templates returns the pre-built workflow templates shipped with the
// engine. Each chains builtin skills through step output references.
func Templates() []*template.Template {
	return []*template.Template{
		codeSearchTemplate(),
		codeAnalysisTemplate(),
		researchReportTemplate(),
	}
}

func codeSearchTemplate() *template.Template {
	return &template.Template{
		ID:          "code_search",
		Name:        "Code Search",
		Description: "Searches indexed content and renders the matches as a report.",
		Category:    template.CategorySearch,
		Parameters: schema.Schema{
			"query": {Type: schema.TypeString, Required: true, Description: "what to search for"},
			"limit": {Type: schema.TypeInteger, Default: 5, Description: "maximum results"},
		},
		Steps: []template.StepDef{
			{
				Skill: "search",
				ID:    "matches",
				Input: map[string]any{
					"query": "{{ query }}",
					"limit": "{{ limit }}",
				},
			},
			{
				Skill: "report_generation",
				ID:    "report",
				Input: map[string]any{
					"title":   "Search results: {{ query }}",
					"content": "{{ matches.results }}",
				},
				OnError: template.OnErrorContinue,
			},
		},
	}
}

func codeAnalysisTemplate() *template.Template {
	return &template.Template{
		ID:          "code_analysis",
		Name:        "Code Analysis",
		Description: "Finds code matching a query and reports structural metrics.",
		Category:    template.CategoryAnalysis,
		Parameters: schema.Schema{
			"query": {Type: schema.TypeString, Required: true, Description: "code to locate"},
			"limit": {Type: schema.TypeInteger, Default: 3, Description: "maximum results"},
		},
		Steps: []template.StepDef{
			{
				Skill: "search",
				ID:    "found",
				Input: map[string]any{
					"query": "{{ query }}",
					"limit": "{{ limit }}",
				},
			},
			{
				Skill: "code_analysis",
				ID:    "metrics",
				Input: map[string]any{
					"content": "{{ found.context }}",
				},
			},
			{
				Skill: "report_generation",
				ID:    "report",
				Input: map[string]any{
					"title":   "Code analysis: {{ query }}",
					"content": "{{ metrics.summary }}",
				},
				OnError: template.OnErrorContinue,
			},
		},
	}
}

func researchReportTemplate() *template.Template {
	return &template.Template{
		ID:          "research_report",
		Name:        "Research Report",
		Description: "Gathers context on a topic, summarizes it with the LLM, and renders a report.",
		Category:    template.CategoryReporting,
		Parameters: schema.Schema{
			"topic": {Type: schema.TypeString, Required: true, Description: "research topic"},
			"limit": {Type: schema.TypeInteger, Default: 5, Description: "maximum sources"},
		},
		Steps: []template.StepDef{
			{
				Skill: "search",
				ID:    "sources",
				Input: map[string]any{
					"query": "{{ topic }}",
					"limit": "{{ limit }}",
				},
			},
			{
				Skill: "llm_invoke",
				ID:    "summary",
				Input: map[string]any{
					"system": "You are a research assistant. Summarize the provided material concisely.",
					"prompt": "Summarize the following material about {{ topic }}:\n\n{{ sources.context }}",
				},
			},
			{
				Skill: "report_generation",
				ID:    "report",
				Input: map[string]any{
					"title":   "Research: {{ topic }}",
					"content": "{{ summary.response }}",
				},
			},
		},
	}
}
