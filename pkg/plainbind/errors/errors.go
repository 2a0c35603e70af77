// Package errors provides structured error types for PlainBind.
//
// BindError carries a class and a catalog code so callers can tell setup
// mistakes (which are returned) from data problems (which are only logged
// and recovered by the engine).
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassArgument ErrorClass = "argument" // Invalid arguments at setup time
	ClassData     ErrorClass = "data"     // Malformed or missing data
	ClassFormat   ErrorClass = "format"   // Formatter failures
	ClassFetch    ErrorClass = "fetch"    // Data acquisition over the network
	ClassConfig   ErrorClass = "config"   // Configuration problems
	ClassRender   ErrorClass = "render"   // Tree mutation and ready callbacks
)

// BindError represents any error raised by PlainBind.
type BindError struct {
	Class   ErrorClass     `json:"class"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hints   []string       `json:"hints,omitempty"`
	File    string         `json:"file,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ErrInvalidArgument matches every BindError of class ClassArgument when
// used with errors.Is.
var ErrInvalidArgument = &BindError{Class: ClassArgument, Message: "invalid argument"}

// Error implements the error interface.
func (e *BindError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}
	return sb.String()
}

// Is reports whether target is a BindError sentinel of the same class.
func (e *BindError) Is(target error) bool {
	t, ok := target.(*BindError)
	if !ok {
		return false
	}
	if t == ErrInvalidArgument {
		return e.Class == ClassArgument
	}
	return t.Code != "" && t.Code == e.Code
}

// PrettyString returns a multi-line formatted string for display.
func (e *BindError) PrettyString() string {
	var sb strings.Builder
	switch e.Class {
	case ClassArgument, ClassConfig:
		sb.WriteString("Setup error")
	default:
		sb.WriteString("Render warning")
	}
	if e.Code != "" {
		sb.WriteString(" [")
		sb.WriteString(e.Code)
		sb.WriteString("]")
	}
	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		sb.WriteString("\n  ")
	} else {
		sb.WriteString(":\n  ")
	}
	sb.WriteString(e.Message)
	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}
	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *BindError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *BindError) WithFile(file string) *BindError {
	copy := *e
	copy.File = file
	return &copy
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass
	Template string
	Hints    []string
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	"ARG-0001": {
		Class:    ClassArgument,
		Template: "formatter name must be a non-empty string",
	},
	"ARG-0002": {
		Class:    ClassArgument,
		Template: "formatter {{.Name}} must be a function",
	},
	"DATA-0001": {
		Class:    ClassData,
		Template: "failed to parse inline JSON: {{.Err}}",
		Hints:    []string{"check the contents of <script id=\"{{.ID}}\" type=\"application/json\">"},
	},
	"DATA-0002": {
		Class:    ClassData,
		Template: "failed to read data file {{.Path}}: {{.Err}}",
	},
	"DATA-0003": {
		Class:    ClassData,
		Template: "data root must be a JSON object, got {{.Got}}",
	},
	"FETCH-0001": {
		Class:    ClassFetch,
		Template: "fetching {{.URL}}: HTTP {{.Status}}",
	},
	"FETCH-0002": {
		Class:    ClassFetch,
		Template: "fetching {{.URL}}: {{.Err}}",
	},
	"FMT-0001": {
		Class:    ClassFormat,
		Template: "formatter {{.Name}} failed: {{.Err}}",
	},
	"FMT-0002": {
		Class:    ClassFormat,
		Template: "unknown formatter {{.Name}}",
	},
	"RENDER-0001": {
		Class:    ClassRender,
		Template: "ready callback error: {{.Err}}",
	},
	"RENDER-0002": {
		Class:    ClassRender,
		Template: "cannot set markup of <{{.Tag}}>: {{.Err}}",
	},
	"RENDER-0003": {
		Class:    ClassRender,
		Template: "attribute {{.Attr}} names no target attribute",
	},
}

// New creates a BindError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *BindError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &BindError{
			Class:   ClassData,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	var hints []string
	for _, hintTmpl := range def.Hints {
		if rendered := renderTemplate(hintTmpl, data); rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &BindError{
		Class:   def.Class,
		Code:    code,
		Message: renderTemplate(def.Template, data),
		Hints:   hints,
		Data:    data,
	}
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *BindError {
	return &BindError{
		Class:   class,
		Message: message,
	}
}

// Newf creates a simple error with a formatted message.
func Newf(class ErrorClass, format string, args ...any) *BindError {
	return NewSimple(class, fmt.Sprintf(format, args...))
}

func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}
	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}
	return buf.String()
}

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns an empty string when nothing is close enough.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)
	var bestMatch string
	bestDistance := -1
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Short words (1-3): max 1 edit, medium (4-6): 2, longer: 3
	threshold := 1
	if len(input) >= 4 && len(input) <= 6 {
		threshold = 2
	} else if len(input) >= 7 {
		threshold = 3
	}

	if bestDistance <= 0 || bestDistance > threshold {
		return ""
	}
	return bestMatch
}

// NewUnknownFormatter creates an unknown formatter error with a
// "Did you mean?" hint when a registered name is close.
func NewUnknownFormatter(name string, registered []string) *BindError {
	err := New("FMT-0002", map[string]any{"Name": name})
	if suggestion := FindClosestMatch(name, registered); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}
