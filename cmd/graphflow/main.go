// Command graphflow runs the code review workflow against a local source
// file and prints the result. It executes the graph in-process, without a
// server.
//
// Usage:
//
//	graphflow review [-threshold n] [-max-steps n] [-output pretty|json|mermaid] file.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/smallnest/graphflow/graph"
	"github.com/smallnest/graphflow/log"
	"github.com/smallnest/graphflow/tool"
	"github.com/smallnest/graphflow/workflow/codereview"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	issueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "review" {
		fmt.Fprintln(os.Stderr, "usage: graphflow review [flags] file.go")
		os.Exit(2)
	}

	fs := flag.NewFlagSet("review", flag.ExitOnError)
	var (
		threshold = fs.Int("threshold", codereview.DefaultThreshold, "quality score at which the review loop stops")
		maxSteps  = fs.Int("max-steps", graph.DefaultMaxSteps, "maximum node invocations")
		output    = fs.String("output", "pretty", "output format (pretty, json, mermaid)")
	)
	fs.Parse(os.Args[2:])

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: graphflow review [flags] file.go")
		os.Exit(2)
	}

	if err := review(fs.Arg(0), *threshold, *maxSteps, *output); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func review(path string, threshold, maxSteps int, output string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	registry := tool.NewRegistry()
	codereview.Register(registry)

	g, err := codereview.New().Compile()
	if err != nil {
		return fmt.Errorf("compile graph: %w", err)
	}

	if output == "mermaid" {
		fmt.Println(graph.NewExporter(g).DrawMermaid())
		return nil
	}

	runner := graph.NewRunner(registry, graph.WithLogger(log.NopLogger{}))
	run := runner.Run(context.Background(), g, graph.State{
		"code":              string(code),
		"quality_threshold": threshold,
	}, maxSteps)

	switch output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case "pretty":
		printRun(path, run)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func printRun(path string, run *graph.Run) {
	fmt.Println(titleStyle.Render("Code review: " + path))
	fmt.Println()

	for _, entry := range run.Trace {
		next := entry.Next
		if next == "" {
			next = "(end)"
		}
		line := fmt.Sprintf("%s %-28s %s %s",
			stepStyle.Render(fmt.Sprintf("step %d", entry.Step)),
			entry.Node,
			faintStyle.Render(entry.Duration.Round(time.Microsecond).String()),
			faintStyle.Render("-> "+next),
		)
		fmt.Println(line)
	}
	fmt.Println()

	var status string
	switch run.Status {
	case graph.StatusCompleted:
		status = okStyle.Render(string(run.Status))
	case graph.StatusMaxStepsExceeded:
		status = warnStyle.Render(string(run.Status))
	default:
		status = failStyle.Render(string(run.Status))
	}

	summary := fmt.Sprintf("status: %s\nscore: %d / 100\niterations: %d\nfunctions: %d",
		status,
		run.FinalState.GetInt("quality_score"),
		run.FinalState.GetInt("iteration"),
		run.FinalState.GetInt("function_count"),
	)
	if run.Error != "" {
		summary += "\nerror: " + failStyle.Render(run.Error)
	}
	fmt.Println(borderStyle.Render(summary))

	issues, _ := run.FinalState["issues"].([]any)
	if len(issues) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Issues"))
		for _, issue := range issues {
			fmt.Println("  " + issueStyle.Render(fmt.Sprint(issue)))
		}
	}

	suggestions, _ := run.FinalState["suggestions"].([]any)
	if len(suggestions) > 0 {
		fmt.Println()
		fmt.Println(titleStyle.Render("Suggestions"))
		for _, s := range suggestions {
			fmt.Println("  " + fmt.Sprint(s))
		}
	}
}
