package geocode

import (
	"context"
	"sync"
	"time"

	"farmlink/internal/models"
)

// DefaultDebounce is the quiet period before a typed query is searched.
const DefaultDebounce = 300 * time.Millisecond

// Searcher runs one place search.
type Searcher interface {
	Search(ctx context.Context, name string) ([]models.Place, error)
}

// Result is the answer to the most recent query.
type Result struct {
	Query  string
	Places []models.Place
	Err    error
}

type tagged struct {
	seq uint64
	Result
}

// Debouncer turns a stream of keystroke queries into searches. A query is only
// searched after delay without newer input, a newer query cancels the search in
// flight, and only results of the latest query are delivered.
type Debouncer struct {
	searcher Searcher
	delay    time.Duration

	input   chan string
	found   chan tagged
	results chan Result
	done    chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDebouncer starts a debouncer around searcher.
func NewDebouncer(searcher Searcher, delay time.Duration) *Debouncer {
	d := &Debouncer{
		searcher: searcher,
		delay:    delay,
		input:    make(chan string),
		found:    make(chan tagged),
		results:  make(chan Result, 1),
		done:     make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Query records the current input text.
func (d *Debouncer) Query(text string) {
	select {
	case d.input <- text:
	case <-d.done:
	}
}

// Results delivers search results. An unread result is replaced by a newer one.
// The channel is closed by Close.
func (d *Debouncer) Results() <-chan Result {
	return d.results
}

func (d *Debouncer) run() {
	defer d.wg.Done()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
		seq     uint64
		cancel  context.CancelFunc = func() {}
	)
	defer func() {
		cancel()
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-d.done:
			return

		case q := <-d.input:
			pending = q
			seq++
			cancel()
			cancel = func() {}
			if timer == nil {
				timer = time.NewTimer(d.delay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.delay)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			d.wg.Add(1)
			go d.search(ctx, seq, pending)

		case r := <-d.found:
			if r.seq != seq {
				continue
			}
			d.deliver(r.Result)
		}
	}
}

func (d *Debouncer) search(ctx context.Context, seq uint64, query string) {
	defer d.wg.Done()
	places, err := d.searcher.Search(ctx, query)
	select {
	case d.found <- tagged{seq: seq, Result: Result{Query: query, Places: places, Err: err}}:
	case <-d.done:
	}
}

func (d *Debouncer) deliver(r Result) {
	select {
	case d.results <- r:
	default:
		select {
		case <-d.results:
		default:
		}
		d.results <- r
	}
}

// Close stops the debouncer, cancels any search in flight and closes Results.
func (d *Debouncer) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
		close(d.results)
	})
}
