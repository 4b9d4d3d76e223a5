package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

// resultBuilder accumulates a SyncResult during a run. The result handed to
// callers is a copy and is never mutated afterwards.
type resultBuilder struct {
	r domain.SyncResult
}

func newResultBuilder(source domain.SourceName, scope string, now time.Time) *resultBuilder {
	return &resultBuilder{r: domain.SyncResult{Source: source, Scope: scope, StartedAt: now}}
}

func (b *resultBuilder) decided(d domain.Decision) {
	switch d {
	case domain.DecisionCreated:
		b.r.Created++
	case domain.DecisionUpdated:
		b.r.Updated++
	case domain.DecisionUnchanged:
		b.r.Unchanged++
	case domain.DecisionSkipped:
		b.r.Skipped++
	}
}

func (b *resultBuilder) failed(ref string, err error) {
	b.r.Failed++
	b.note(ref, err)
}

// note records an error that is not tied to a single item.
func (b *resultBuilder) note(ref string, err error) {
	b.r.Errors = append(b.r.Errors, domain.SyncError{Ref: ref, Message: err.Error()})
}

func (b *resultBuilder) finish(now time.Time) domain.SyncResult {
	out := b.r
	out.FinishedAt = now
	out.Errors = append([]domain.SyncError(nil), b.r.Errors...)
	return out
}

// pagedSync drives one flow: fetch a page, reconcile its items one by one,
// follow the cursor until the source is exhausted or the page limit is hit.
type pagedSync[T any] struct {
	flow   string
	limits SyncLimits

	// fetch loads the page at cursor. An empty cursor is the first page.
	fetch func(ctx context.Context, cursor string) (domain.Page[T], error)

	// ref names an item in error reports.
	ref func(item T) string

	// handle reconciles one item.
	handle func(ctx context.Context, item T) (domain.Decision, error)
}

// run executes the loop. Cancellation stops further page fetches but never
// interrupts an item in flight.
//
//nolint:gocyclo // the state machine reads best in one place
func (p *pagedSync[T]) run(ctx context.Context, b *resultBuilder) {
	pace := newPacer(p.limits.PageDelay)
	seen := make(map[string]struct{})
	cursor := ""
	failures := 0

	for page := 1; page <= p.limits.PageLimit; page++ {
		if err := pace.Wait(ctx); err != nil {
			b.note(fmt.Sprintf("page %d", page), err)
			return
		}
		b.r.Pages++

		logger.Debug("%s: fetching page %d", p.flow, page)
		result, err := p.fetch(ctx, cursor)
		if err != nil {
			failures++
			logger.Warn("%s: page %d failed: %v", p.flow, page, err)
			b.note(fmt.Sprintf("page %d", page), err)
			if failures >= maxConsecutivePageFailures || ctx.Err() != nil {
				return
			}
			continue
		}
		failures = 0

		for _, item := range result.Items {
			d, err := p.process(ctx, item)
			if err != nil {
				ref := p.ref(item)
				logger.Warn("%s: item %s failed: %v", p.flow, ref, err)
				b.failed(ref, err)
				continue
			}
			b.decided(d)
		}

		if result.NextCursor == "" {
			return
		}
		if _, repeated := seen[result.NextCursor]; repeated {
			b.note(fmt.Sprintf("page %d", page), domain.ErrUnterminatedCursor)
			return
		}
		seen[result.NextCursor] = struct{}{}
		cursor = result.NextCursor
	}

	logger.Warn("%s: stopped at page limit %d", p.flow, p.limits.PageLimit)
}

// process isolates one item so a panic in mapping code becomes an item error.
func (p *pagedSync[T]) process(ctx context.Context, item T) (d domain.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.handle(ctx, item)
}

// singlePage adapts a source that returns everything at once.
func singlePage[T any](load func(ctx context.Context) ([]T, error)) func(context.Context, string) (domain.Page[T], error) {
	return func(ctx context.Context, _ string) (domain.Page[T], error) {
		items, err := load(ctx)
		if err != nil {
			return domain.Page[T]{}, err
		}
		return domain.Page[T]{Items: items}, nil
	}
}

// isConflict reports whether a store error means "record already exists".
func isConflict(err error) bool {
	return errors.Is(err, domain.ErrAlreadyExists)
}
