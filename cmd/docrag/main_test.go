package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 16

func writeConfig(t *testing.T, apiKey string) string {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DOCRAG_API_KEY", "")
	dir := t.TempDir()
	data := fmt.Sprintf(`ai:
  api_key: %q
  embedding_dimension: %d
index:
  path: %q
pipeline:
  upload_dir: %q
  chunk_size: 50
  chunk_overlap: 0
  retry_delay: 0s
`, apiKey, testDim, filepath.Join(dir, "index"), filepath.Join(dir, "uploads"))
	path := filepath.Join(dir, "docrag.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

// useMockEngine makes commands open engines backed by the mock provider.
func useMockEngine(t *testing.T) {
	t.Helper()
	original := openEngine
	openEngine = func(cfg *config.Config, logger *slog.Logger) (*docrag.Engine, error) {
		provider := mock.NewMockProviderWithServices(mock.NewMockEmbedderWithDimension(testDim), mock.NewMockImageDescriber())
		return docrag.Open(cfg, docrag.WithProvider(provider), docrag.WithLogger(logger))
	}
	t.Cleanup(func() { openEngine = original })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"docrag"}, args...))
	return out.String(), err
}

func TestSetup(t *testing.T) {
	cfgPath := writeConfig(t, "test-key")

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			t.Run(level, func(t *testing.T) {
				_, err := run(t, "--config", cfgPath, "--log-level", level, "validate")
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := run(t, "--config", cfgPath, "--log-level", "verbose", "validate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "validate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config")
	})
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		out, err := run(t, "--config", writeConfig(t, "test-key"), "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "configuration OK")
		assert.Contains(t, out, "dimension 16")
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := run(t, "--config", writeConfig(t, ""), "validate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api key is required")
	})

	t.Run("connect", func(t *testing.T) {
		useMockEngine(t)
		out, err := run(t, "--config", writeConfig(t, "test-key"), "validate", "--connect")
		require.NoError(t, err)
		assert.Contains(t, out, "configuration OK")
	})
}

func TestIngestAndSearch(t *testing.T) {
	useMockEngine(t)
	cfgPath := writeConfig(t, "test-key")

	dir := t.TempDir()
	doc := filepath.Join(dir, "manual.txt")
	dup := filepath.Join(dir, "copy.txt")
	text := "The pump must be primed before first use.\n\nReplace the filter every six months."
	require.NoError(t, os.WriteFile(doc, []byte(text), 0o644))
	require.NoError(t, os.WriteFile(dup, []byte(text), 0o644))

	out, err := run(t, "--config", cfgPath, "ingest", "--poll", "10ms", "--user", "alice", doc, dup)
	require.NoError(t, err)
	assert.Contains(t, out, "manual.txt: Processing complete")
	assert.Contains(t, out, `copy.txt: identical content was already uploaded as "manual.txt"`)

	out, err = run(t, "--config", cfgPath, "search", "--text-only", "Replace the filter every six months.")
	require.NoError(t, err)
	assert.Contains(t, out, "Text results: 2")
	assert.Contains(t, out, "1. [1.000] manual.txt")
	assert.Contains(t, out, "(searched)")
	assert.NotContains(t, out, "Image results")

	out, err = run(t, "--config", cfgPath, "search", "--source", "other.txt", "pump priming")
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestIngestCommand_Errors(t *testing.T) {
	useMockEngine(t)
	cfgPath := writeConfig(t, "test-key")

	t.Run("no files", func(t *testing.T) {
		_, err := run(t, "--config", cfgPath, "ingest")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one file")
	})

	t.Run("missing file", func(t *testing.T) {
		out, err := run(t, "--config", cfgPath, "ingest", filepath.Join(t.TempDir(), "nope.pdf"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 1 files failed")
		assert.Contains(t, out, "nope.pdf")
	})

	t.Run("unsupported content fails the job", func(t *testing.T) {
		bin := filepath.Join(t.TempDir(), "blob.bin")
		require.NoError(t, os.WriteFile(bin, []byte{0x00, 0x01, 0x02, 0xff, 0xfe, 0x00}, 0o644))
		out, err := run(t, "--config", cfgPath, "ingest", "--poll", "10ms", bin)
		require.Error(t, err)
		assert.Contains(t, out, "blob.bin: Processing failed")
	})
}

func TestSearchCommand_Errors(t *testing.T) {
	useMockEngine(t)
	cfgPath := writeConfig(t, "test-key")

	_, err := run(t, "--config", cfgPath, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a query is required")

	_, err = run(t, "--config", cfgPath, "search", "ab")
	assert.ErrorIs(t, err, search.ErrInvalidQuery)
}

type fakeJobs struct {
	mu    sync.Mutex
	polls int
	views map[string][]*docrag.JobView
}

func (f *fakeJobs) Job(_ context.Context, id string) (*docrag.JobView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq, ok := f.views[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	f.polls++
	v := seq[0]
	if len(seq) > 1 {
		f.views[id] = seq[1:]
	}
	return v, nil
}

func view(status core.JobStatus, progress int, message string) *docrag.JobView {
	return &docrag.JobView{Job: core.Job{Status: status, Progress: progress}, Message: message}
}

func TestJobTracker(t *testing.T) {
	t.Run("waits for every job", func(t *testing.T) {
		source := &fakeJobs{views: map[string][]*docrag.JobView{
			"a": {
				view(core.JobStatusProcessing, 10, ""),
				view(core.JobStatusProcessing, 60, ""),
				view(core.JobStatusCompleted, 100, "Processing complete"),
			},
			"b": {
				view(core.JobStatusPending, 0, ""),
				view(core.JobStatusFailed, 5, "Processing failed: boom"),
			},
		}}
		var buf bytes.Buffer
		tracker := newJobTracker(&buf, source, time.Millisecond)

		views, err := tracker.Wait(context.Background(), []trackedJob{{ID: "a", Filename: "a.txt"}, {ID: "b", Filename: "b.txt"}})
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "Processing complete", views[0].Message)
		assert.Equal(t, "Processing failed: boom", views[1].Message)
		assert.Contains(t, buf.String(), "Progress: 0/2 jobs (5.0%)")
		assert.Contains(t, buf.String(), "Progress: 2/2 jobs (100.0%)")
		assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	})

	t.Run("unknown job", func(t *testing.T) {
		tracker := newJobTracker(&bytes.Buffer{}, &fakeJobs{views: map[string][]*docrag.JobView{}}, time.Millisecond)
		_, err := tracker.Wait(context.Background(), []trackedJob{{ID: "x", Filename: "x.txt"}})
		assert.ErrorContains(t, err, "x.txt")
	})

	t.Run("cancelled context", func(t *testing.T) {
		source := &fakeJobs{views: map[string][]*docrag.JobView{"a": {view(core.JobStatusProcessing, 20, "")}}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		views, err := newJobTracker(&bytes.Buffer{}, source, time.Hour).Wait(ctx, []trackedJob{{ID: "a"}})
		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, views, 1)
		assert.Equal(t, 20, views[0].Progress)
	})
}

func TestPrintResult(t *testing.T) {
	result := &core.CachedSearchResult{
		TextResults: []core.SearchResultItem{
			{Content: "first   chunk\ntext", Score: 0.91, Filename: "guide.pdf", Type: core.ItemTypeText, Page: 3, TotalPages: 12},
		},
		ImageResults: []core.SearchResultItem{
			{Content: strings.Repeat("a", 200), Score: 0.5, Filename: "deck.pptx", Type: core.ItemTypeImage, Page: 2, ImageNumber: 4, Width: 640, Height: 480},
		},
		TextMetrics:     core.ModalityMetrics{Count: 1, AverageScore: 0.91, MaxScore: 0.91, MinScore: 0.91},
		ImageMetrics:    core.ModalityMetrics{Count: 1, AverageScore: 0.5, MaxScore: 0.5, MinScore: 0.5},
		TotalDurationMs: 12,
		WasCached:       true,
	}

	var buf bytes.Buffer
	printResult(&buf, result)
	out := buf.String()
	assert.Contains(t, out, "Text results: 1 (avg 0.910, max 0.910, min 0.910)")
	assert.Contains(t, out, "1. [0.910] guide.pdf p.3/12")
	assert.Contains(t, out, "first chunk text")
	assert.Contains(t, out, "1. [0.500] deck.pptx p.2 image 4 (640x480)")
	assert.Contains(t, out, strings.Repeat("a", snippetLength)+"...")
	assert.Contains(t, out, "2 results in 12ms (cached)")

	buf.Reset()
	printResult(&buf, &core.CachedSearchResult{})
	assert.Equal(t, "No results\n", buf.String())
}

func TestTraceMonitor(t *testing.T) {
	var buf bytes.Buffer
	m := newTraceMonitor(&buf)
	m.Start(search.Request{Query: "pump", TextLimit: 5, ImageLimit: 3})
	m.AfterEmbedding(16, 3*time.Millisecond)
	m.AfterModalitySearch(core.ItemTypeText, make([]core.SearchResultItem, 2), time.Millisecond)
	m.Finish(&core.CachedSearchResult{TextResults: make([]core.SearchResultItem, 2)})
	m.CacheHit(&core.CachedSearchResult{})
	m.Finish(core.NewErrorResult("text search: down"))

	out := buf.String()
	assert.Contains(t, out, `query "pump" text_limit=5 image_limit=3`)
	assert.Contains(t, out, "embedded query: 16 dimensions")
	assert.Contains(t, out, "text search: 2 items")
	assert.Contains(t, out, "done: 2 results")
	assert.Contains(t, out, "cache hit: 0 results")
	assert.Contains(t, out, "failed: text search: down")
}
