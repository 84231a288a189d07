// Package codereview bundles the example code-review workflow: a small
// analysis pipeline over Go source that extracts functions, scores
// complexity, detects common issues, suggests improvements and loops the
// detection steps until the quality score clears a threshold or the
// iteration cap is reached.
//
// The analysis steps are ordinary tools; the engine only knows them by
// name. Register installs them into a registry, New returns the prepared
// graph builder.
package codereview

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/tool"
)

// GraphName is the name of the prepared workflow graph.
const GraphName = "code-review"

// DefaultThreshold is the quality score at which the review loop stops
// when the initial state does not set "quality_threshold".
const DefaultThreshold = 70

// MaxIterations caps the review loop regardless of score.
const MaxIterations = 3

// RouterName is the registry name of the review loop router.
const RouterName = "route_after_score"

var (
	funcPattern    = regexp.MustCompile(`(?m)^func\s+(?:\([^)]+\)\s*)?([A-Za-z_]\w*)\s*\(`)
	packageVarLine = regexp.MustCompile(`(?m)^var\s`)
	printCall      = regexp.MustCompile(`\bfmt\.Print(ln|f)?\s*\(`)
	droppedError   = regexp.MustCompile(`(?m)^\s*_\s*=\s`)
)

// ExtractFunctions finds top-level function declarations in state["code"]
// and records their names and line counts under "functions".
func ExtractFunctions(_ context.Context, state graph.State) (graph.State, error) {
	code := state.GetString("code")

	matches := funcPattern.FindAllStringSubmatchIndex(code, -1)
	functions := make([]any, 0, len(matches))
	for i, m := range matches {
		name := code[m[2]:m[3]]
		end := len(code)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := code[m[0]:end]
		nesting := strings.Count(body, "\t\tif ") + strings.Count(body, "\t\tfor ") + strings.Count(body, "\t\tswitch ")
		functions = append(functions, map[string]any{
			"name":    name,
			"lines":   strings.Count(strings.TrimRight(body, "\n"), "\n") + 1,
			"nesting": nesting,
		})
	}

	state["functions"] = functions
	state["function_count"] = len(functions)
	return state, nil
}

// CheckComplexity scores each extracted function on length and nesting and
// records the total under "total_complexity".
func CheckComplexity(_ context.Context, state graph.State) (graph.State, error) {
	functions, _ := state["functions"].([]any)

	var complexityIssues []any
	totalComplexity := 0

	for _, f := range functions {
		fn, ok := f.(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		lines := graph.State(fn).GetInt("lines")

		score := 0
		switch {
		case lines > 50:
			score += 3
			complexityIssues = append(complexityIssues, fmt.Sprintf("function %q is too long (%d lines)", name, lines))
		case lines > 30:
			score += 2
		}

		nesting := graph.State(fn).GetInt("nesting")
		if nesting > 5 {
			score += 2
			complexityIssues = append(complexityIssues, fmt.Sprintf("function %q has deep nesting", name))
		}

		fn["complexity_score"] = score
		totalComplexity += score
	}

	if complexityIssues == nil {
		complexityIssues = []any{}
	}
	state["complexity_issues"] = complexityIssues
	state["total_complexity"] = totalComplexity
	return state, nil
}

// DetectIssues scans the source for common smells: missing comments, too
// many package-level variables, overlong lines, swallowed errors and
// leftover print calls.
func DetectIssues(_ context.Context, state graph.State) (graph.State, error) {
	code := state.GetString("code")
	var issues []any

	if !strings.Contains(code, "//") {
		issues = append(issues, "no comments found")
	}

	if n := len(packageVarLine.FindAllString(code, -1)); n > 5 {
		issues = append(issues, fmt.Sprintf("too many package-level variables (%d)", n))
	}

	var longLines []int
	for i, line := range strings.Split(code, "\n") {
		if len(line) > 120 {
			longLines = append(longLines, i+1)
		}
	}
	if len(longLines) > 0 {
		if len(longLines) > 3 {
			longLines = longLines[:3]
		}
		issues = append(issues, fmt.Sprintf("lines too long: %v", longLines))
	}

	if n := len(droppedError.FindAllString(code, -1)); n > 0 {
		issues = append(issues, fmt.Sprintf("discarded values (%d occurrences of _ =), check for swallowed errors", n))
	}

	if n := len(printCall.FindAllString(code, -1)); n > 3 {
		issues = append(issues, fmt.Sprintf("too many fmt.Print calls (%d), use a logger", n))
	}

	if issues == nil {
		issues = []any{}
	}
	state["issues"] = issues
	state["issue_count"] = len(issues)
	return state, nil
}

// SuggestImprovements turns the collected findings into actionable
// suggestions.
func SuggestImprovements(_ context.Context, state graph.State) (graph.State, error) {
	functions, _ := state["functions"].([]any)
	issues, _ := state["issues"].([]any)

	var suggestions []any

	for _, f := range functions {
		fn, ok := f.(map[string]any)
		if !ok {
			continue
		}
		if graph.State(fn).GetInt("complexity_score") > 3 {
			suggestions = append(suggestions, fmt.Sprintf("refactor %q into smaller functions", fn["name"]))
		}
	}

	for _, issue := range issues {
		text, _ := issue.(string)
		switch {
		case strings.Contains(text, "comments"):
			suggestions = append(suggestions, "add doc comments to exported identifiers")
		case strings.Contains(text, "fmt.Print"):
			suggestions = append(suggestions, "replace fmt.Print calls with structured logging")
		case strings.Contains(text, "swallowed"):
			suggestions = append(suggestions, "handle or propagate errors instead of discarding them")
		}
	}

	if len(functions) > 10 {
		suggestions = append(suggestions, "consider splitting the file into multiple packages")
	}

	if suggestions == nil {
		suggestions = []any{}
	}
	state["suggestions"] = suggestions
	return state, nil
}

// CalculateQualityScore derives the overall quality score from the issue
// count and total complexity, and advances the iteration counter the loop
// router reads.
func CalculateQualityScore(_ context.Context, state graph.State) (graph.State, error) {
	issueCount := state.GetInt("issue_count")
	totalComplexity := state.GetInt("total_complexity")

	score := 100 - issueCount*10 - totalComplexity*5
	if score < 0 {
		score = 0
	}

	state["quality_score"] = score
	state["iteration"] = state.GetInt("iteration") + 1
	return state, nil
}

// RouteAfterScore decides whether the review loops back to detection or
// terminates: it stops once the score clears the threshold or the
// iteration cap is hit.
func RouteAfterScore(_ context.Context, state graph.State) string {
	score := state.GetInt("quality_score")
	iteration := state.GetInt("iteration")

	threshold := DefaultThreshold
	if _, ok := state["quality_threshold"]; ok {
		threshold = state.GetInt("quality_threshold")
	}

	if score >= threshold || iteration >= MaxIterations {
		return graph.END
	}
	return "detect_issues"
}

// Register installs the code-review tools and router into the registry.
func Register(reg *tool.Registry) {
	reg.Register("extract_functions", ExtractFunctions, "Extract function definitions from code")
	reg.Register("check_complexity", CheckComplexity, "Analyze code complexity")
	reg.Register("detect_issues", DetectIssues, "Detect code smells and issues")
	reg.Register("suggest_improvements", SuggestImprovements, "Generate improvement suggestions")
	reg.Register("calculate_quality_score", CalculateQualityScore, "Calculate overall quality score")
	reg.RegisterRouter(RouterName, RouteAfterScore, "Loop the review until the quality score clears the threshold")
}

// New returns the prepared code-review workflow builder. Callers compile
// it themselves so they can pass compile options.
func New() *graph.Builder {
	return graph.NewBuilder(GraphName).
		AddNode("extract_functions", "extract_functions", "Extract function definitions from code").
		AddNode("check_complexity", "check_complexity", "Analyze code complexity").
		AddNode("detect_issues", "detect_issues", "Detect code smells and issues").
		AddNode("suggest_improvements", "suggest_improvements", "Generate improvement suggestions").
		AddNode("calculate_quality_score", "calculate_quality_score", "Calculate overall quality score").
		AddEdge("extract_functions", "check_complexity").
		AddEdge("check_complexity", "detect_issues").
		AddEdge("detect_issues", "suggest_improvements").
		AddEdge("suggest_improvements", "calculate_quality_score").
		AddNamedConditionalEdge("calculate_quality_score", RouterName, RouteAfterScore).
		SetEntryPoint("extract_functions")
}
