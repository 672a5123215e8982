package builtin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// languagePatterns maps a language to the regexes that recognize its
// comment lines and function declarations.
type languagePatterns struct {
	lineComment string
	function    *regexp.Regexp
}

var patternsByLanguage = map[string]languagePatterns{
	"go": {
		lineComment: "//",
		function:    regexp.MustCompile(`^\s*func\s+(\(\s*\w+\s+\*?\w+\s*\)\s*)?\w+\s*\(`),
	},
	"python": {
		lineComment: "#",
		function:    regexp.MustCompile(`^\s*(async\s+)?def\s+\w+\s*\(`),
	},
	"javascript": {
		lineComment: "//",
		function:    regexp.MustCompile(`^\s*(async\s+)?function\s+\w+\s*\(|^\s*(const|let|var)\s+\w+\s*=\s*(async\s*)?\(`),
	},
	"rust": {
		lineComment: "//",
		function:    regexp.MustCompile(`^\s*(pub\s+)?(async\s+)?fn\s+\w+`),
	},
}

// analyzeCode computes line and declaration metrics for a snippet. The
// language is detected from the content when no hint is given.
func analyzeCode(content, language string) map[string]any {
	if language == "" {
		language = detectLanguage(content)
	}
	patterns, known := patternsByLanguage[language]

	var total, code, comments, blanks, functions int
	for _, line := range strings.Split(content, "\n") {
		total++
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			blanks++
		case known && strings.HasPrefix(trimmed, patterns.lineComment):
			comments++
		default:
			code++
			if known && patterns.function.MatchString(line) {
				functions++
			}
		}
	}

	return map[string]any{
		"language":      language,
		"total_lines":   total,
		"code_lines":    code,
		"comment_lines": comments,
		"blank_lines":   blanks,
		"functions":     functions,
		"summary": fmt.Sprintf("%s: %d lines (%d code, %d comments, %d blank), %d functions",
			language, total, code, comments, blanks, functions),
	}
}

// detectLanguage makes a best-effort guess from declaration keywords.
func detectLanguage(content string) string {
	switch {
	case strings.Contains(content, "func ") && (strings.Contains(content, "package ") || strings.Contains(content, ":= ")):
		return "go"
	case strings.Contains(content, "def "):
		return "python"
	case strings.Contains(content, "fn ") && strings.Contains(content, "let "):
		return "rust"
	case strings.Contains(content, "function ") || strings.Contains(content, "=> "):
		return "javascript"
	default:
		return "unknown"
	}
}

// renderReport builds the report body. Markdown is the default; text mode
// drops the heading markers.
func renderReport(title string, content, sections any, format string) string {
	var b strings.Builder
	heading := "# "
	subheading := "## "
	if format == "text" {
		heading = ""
		subheading = ""
	}

	b.WriteString(heading + title + "\n")

	if list, ok := sections.([]any); ok {
		for _, raw := range list {
			section, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			name, _ := section["name"].(string)
			if name != "" {
				b.WriteString("\n" + subheading + name + "\n")
			}
			if body, ok := section["body"]; ok {
				b.WriteString(stringifyContent(body) + "\n")
			}
		}
	}

	if content != nil {
		b.WriteString("\n" + stringifyContent(content) + "\n")
	}
	return b.String()
}

// stringifyContent renders arbitrary content as text, falling back to JSON
// for structured values.
func stringifyContent(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
