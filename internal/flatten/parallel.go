package flatten

import (
	"context"
	"iter"
	"sync"

	"github.com/gi8lino/issuetab/internal/source"

	"golang.org/x/sync/errgroup"
)

// task pairs a Source Record with its input ordinal.
type task struct {
	idx int
	rec source.Record
}

// batch is one flattened record, or a terminal error, at an ordinal.
type batch struct {
	idx  int
	rows []Row
	err  error
}

// FlattenParallel shards Source Records across a worker pool while
// emitting Output Records in exactly the order Flatten would. Workers
// flatten records independently; a reorder buffer replays their
// batches by input ordinal. With one worker it falls back to Flatten.
func (f *Flattener) FlattenParallel(ctx context.Context, src iter.Seq2[source.Record, error], workers int) iter.Seq2[Row, error] {
	if workers <= 1 {
		return f.Flatten(ctx, src)
	}

	return func(yield func(Row, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		tasks := make(chan task)
		batches := make(chan batch, workers)
		g, gctx := errgroup.WithContext(ctx)

		// Feeder: assign ordinals and hand records to the pool. A source
		// error travels in-band at its ordinal so every row before it is
		// still emitted.
		g.Go(func() error {
			defer close(tasks)
			idx := 0
			for rec, err := range src {
				if err != nil {
					select {
					case batches <- batch{idx: idx, err: err}:
					case <-gctx.Done():
					}
					return nil
				}
				select {
				case tasks <- task{idx: idx, rec: rec}:
					idx++
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})

		var wg sync.WaitGroup
		wg.Add(workers)
		for range workers {
			g.Go(func() error {
				defer wg.Done()
				for t := range tasks {
					rows, err := f.flattenRecord(t.rec)
					if err != nil && f.policy != PolicyAbort {
						f.logger.Warn("Skipping unparsable record", "origin", t.rec.Origin, "error", err.Error())
						rows, err = nil, nil
					}
					select {
					case batches <- batch{idx: t.idx, rows: rows, err: err}:
					case <-gctx.Done():
						return nil
					}
				}
				return nil
			})
		}

		// The feeder's terminal batch is sent before tasks closes, so it
		// always lands before the pool drains and batches closes here.
		go func() {
			wg.Wait()
			close(batches)
		}()

		// stop tears the pool down after an early exit: cancel unparks
		// blocked senders, the drain empties the channel, Wait joins.
		stop := func() {
			cancel()
			for range batches {
			}
			_ = g.Wait()
		}

		emit := func(b batch) bool {
			if b.err != nil {
				yield(Row{}, b.err)
				return false
			}
			for _, row := range b.rows {
				if !yield(row, nil) {
					return false
				}
			}
			return true
		}

		// Reorder buffer: replay batches strictly by input ordinal.
		pending := make(map[int]batch)
		next := 0
		for b := range batches {
			if b.idx != next {
				pending[b.idx] = b
				continue
			}
			if !emit(b) {
				stop()
				return
			}
			next++
			for {
				nb, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if !emit(nb) {
					stop()
					return
				}
				next++
			}
		}
		_ = g.Wait()
	}
}
