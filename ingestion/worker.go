package ingestion

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/poiesic/docrag/ai"
)

// run drives one job from pending to a terminal status.
func (p *Pipeline) run(jobID, path, filename string) {
	defer p.workers.Done()

	ctx, done := p.registry.Bind(p.base, jobID)
	defer done()
	// Registry writes must land even after the job context is cancelled.
	bg := context.WithoutCancel(ctx)
	logger := p.logger.With("job", jobID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job worker panicked", "panic", r)
			p.fail(bg, jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := p.registry.MarkProcessing(bg, jobID); err != nil {
		logger.Warn("job not started", "err", err)
		return
	}

	run := &jobRun{jobID: jobID, path: path, filename: filename}
	for _, proc := range p.processors() {
		if err := ctx.Err(); err != nil {
			p.stopped(bg, jobID, proc.name(), err)
			return
		}
		if s, ok := proc.(skipper); ok && s.skip(run) {
			continue
		}

		from, to := proc.span(run)
		if err := p.registry.AdvanceStage(bg, jobID, proc.name(), from); err != nil {
			logger.Debug("stage not entered", "stage", proc.name(), "err", err)
			return
		}
		run.progress = func(done, total int) {
			if total <= 0 {
				return
			}
			if err := p.registry.Advance(bg, jobID, from+(to-from)*done/total); err != nil {
				logger.Debug("progress not recorded", "err", err)
			}
		}

		logger.Debug("stage started", "stage", proc.name())
		if err := proc.process(ctx, run); err != nil {
			if ctx.Err() != nil {
				p.stopped(bg, jobID, proc.name(), ctx.Err())
				return
			}
			p.fail(bg, jobID, (&stageError{stage: proc.name(), err: err}).Error())
			return
		}
		run.progress(1, 1)
	}

	if err := p.registry.MarkCompleted(bg, jobID); err != nil {
		logger.Warn("job could not complete", "err", err)
		return
	}
	logger.Info("job completed", "chunks", len(run.chunks), "images", len(run.descriptions))
}

// processors returns the stages in execution order.
func (p *Pipeline) processors() []processor {
	return []processor{
		&detectProcessor{},
		&extractProcessor{router: p.router, images: p.describeImages && p.describer != nil},
		&chunkProcessor{chunker: p.chunker},
		&textProcessor{pipeline: p},
		&describeProcessor{pipeline: p},
		&imageEmbedProcessor{pipeline: p},
	}
}

// stopped handles a job whose context ended. A cancelled job is already
// failed; a pipeline shutdown fails it here.
func (p *Pipeline) stopped(ctx context.Context, jobID, stage string, cause error) {
	if p.registry.IsCancelled(ctx, jobID) {
		p.logger.Info("job cancelled", "job", jobID, "stage", stage)
		return
	}
	p.fail(ctx, jobID, (&stageError{stage: stage, err: cause}).Error())
}

func (p *Pipeline) fail(ctx context.Context, jobID, reason string) {
	if err := p.registry.MarkFailed(ctx, jobID, reason); err != nil {
		p.logger.Debug("job already terminal", "job", jobID, "err", err)
	}
}

// fanOut runs fn for items 0..n-1 on the shared pool and reports each
// completion through progress. The first error cancels the remaining items.
func (p *Pipeline) fanOut(ctx context.Context, n int, progress func(done, total int), fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		done     atomic.Int64
	)
	setErr := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			// Panics on pool workers never reach the job goroutine.
			defer func() {
				if r := recover(); r != nil {
					setErr(fmt.Errorf("internal error: %v", r))
				}
			}()
			if ctx.Err() != nil {
				return
			}
			if err := fn(ctx, i); err != nil {
				setErr(err)
				return
			}
			progress(int(done.Add(1)), n)
		})
		if err != nil {
			wg.Done()
			setErr(fmt.Errorf("schedule work: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// embed embeds text, retrying with the configured budget.
func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := ai.Retry(ctx, p.maxAttempts, p.retryDelay, func(ctx context.Context) error {
		v, err := p.embedder.EmbedText(ctx, text)
		if err != nil {
			return err
		}
		if len(v) != p.index.Dimension() {
			return fmt.Errorf("embedding has %d dimensions, index expects %d", len(v), p.index.Dimension())
		}
		vec = v
		return nil
	})
	return vec, err
}

// describe describes an image, retrying with the configured budget.
func (p *Pipeline) describe(ctx context.Context, mimeType string, data []byte) (string, error) {
	var desc string
	err := ai.Retry(ctx, p.maxAttempts, p.retryDelay, func(ctx context.Context) error {
		d, err := p.describer.DescribeImage(ctx, mimeType, data)
		if err != nil {
			return err
		}
		if d == "" {
			return ai.ErrEmptyDescription
		}
		desc = d
		return nil
	})
	return desc, err
}
