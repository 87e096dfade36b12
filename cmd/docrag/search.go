package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/search"
	"github.com/urfave/cli/v2"
)

const snippetLength = 160

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	engine, err := openEngine(configFrom(c), slog.Default())
	if err != nil {
		return err
	}
	defer engine.Close()

	req := search.Request{
		Query:      query,
		TextLimit:  c.Int("text-limit"),
		ImageLimit: c.Int("image-limit"),
		Sources:    c.StringSlice("source"),
		TextOnly:   c.Bool("text-only"),
	}
	var monitor search.SearchMonitor
	if c.Bool("trace") {
		monitor = newTraceMonitor(c.App.ErrWriter)
	}

	result, err := engine.SearchWithMonitor(c.Context, req, monitor)
	if err != nil {
		return err
	}
	if result.HasError {
		return fmt.Errorf("search failed: %s", result.ErrorMessage)
	}
	printResult(c.App.Writer, result)
	return nil
}

func printResult(w io.Writer, r *core.CachedSearchResult) {
	if r.IsEmpty() {
		fmt.Fprintln(w, "No results")
		return
	}
	printSection(w, "Text", r.TextResults, r.TextMetrics)
	printSection(w, "Image", r.ImageResults, r.ImageMetrics)

	source := "searched"
	if r.WasCached {
		source = "cached"
	}
	fmt.Fprintf(w, "%d results in %dms (%s)\n", r.TotalCount(), r.TotalDurationMs, source)
}

func printSection(w io.Writer, title string, items []core.SearchResultItem, m core.ModalityMetrics) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s results: %d (avg %.3f, max %.3f, min %.3f)\n", title, m.Count, m.AverageScore, m.MaxScore, m.MinScore)
	for i, item := range items {
		fmt.Fprintf(w, "  %d. [%.3f] %s%s\n", i+1, item.Score, item.Filename, location(item))
		fmt.Fprintf(w, "     %s\n", snippet(item.Content))
	}
}

func location(item core.SearchResultItem) string {
	var b strings.Builder
	if item.Page > 0 {
		if item.TotalPages > 0 {
			fmt.Fprintf(&b, " p.%d/%d", item.Page, item.TotalPages)
		} else {
			fmt.Fprintf(&b, " p.%d", item.Page)
		}
	}
	if item.Type == core.ItemTypeImage {
		fmt.Fprintf(&b, " image %d", item.ImageNumber)
		if item.Width > 0 && item.Height > 0 {
			fmt.Fprintf(&b, " (%dx%d)", item.Width, item.Height)
		}
	}
	return b.String()
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= snippetLength {
		return s
	}
	return string(runes[:snippetLength]) + "..."
}
