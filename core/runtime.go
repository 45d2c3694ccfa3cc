package recall

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ishfaq-code/Recallify/core/backend"
)

const answerQueueCapacity = 16

// queuedAnswer carries a submitted answer together with the conversation
// context captured at submit time, so appends racing the queue cannot change
// what the backend is asked.
type queuedAnswer struct {
	answer           ConversationMessage
	previousQuestion string
	history          []backend.ContextPair
	queuedAt         time.Time
}

// sessionRuntime serializes answer round-trips. Answers are processed one at
// a time in submission order; the drain goroutine lives until end is called.
type sessionRuntime struct {
	baseContext context.Context
	// process resolves one queued answer into the next question.
	process func(context.Context, queuedAnswer) error

	queue   chan queuedAnswer
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newSessionRuntime() *sessionRuntime {
	return &sessionRuntime{
		baseContext: context.Background(),
		queue:       make(chan queuedAnswer, answerQueueCapacity),
		closeCh:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (runtime *sessionRuntime) configure(ctx context.Context, process func(context.Context, queuedAnswer) error) {
	if runtime == nil {
		return
	}

	runtime.baseContext = ctx
	runtime.process = process
}

func (runtime *sessionRuntime) start() (started bool) {
	if runtime == nil || runtime.isClosed() {
		return false
	}

	runtime.startOnce.Do(func() {
		if runtime.isClosed() {
			return
		}

		started = true
		runtime.started.Store(true)
		go func() {
			defer close(runtime.done)

			for {
				select {
				case <-runtime.closeCh:
					return
				case item := <-runtime.queue:
					if runtime.isClosed() {
						return
					}
					runtime.processQueued(item)
				}
			}
		}()
	})

	return started
}

func (runtime *sessionRuntime) end() {
	if runtime == nil {
		return
	}

	runtime.endOnce.Do(func() {
		close(runtime.closeCh)
	})
}

func (runtime *sessionRuntime) waitUntilEnded() {
	if runtime == nil {
		return
	}

	if runtime.started.Load() {
		<-runtime.done
	}
}

func (runtime *sessionRuntime) enqueue(item queuedAnswer) bool {
	if runtime == nil || runtime.isClosed() {
		return false
	}

	item.queuedAt = time.Now()
	select {
	case <-runtime.closeCh:
		return false
	case runtime.queue <- item:
		return true
	}
}

func (runtime *sessionRuntime) isClosed() bool {
	if runtime == nil {
		return false
	}

	select {
	case <-runtime.closeCh:
		return true
	default:
		return false
	}
}

func (runtime *sessionRuntime) queuedCount() int {
	if runtime == nil {
		return 0
	}

	return len(runtime.queue)
}

func (runtime *sessionRuntime) processQueued(item queuedAnswer) {
	if runtime == nil || runtime.process == nil {
		return
	}

	answerCtx, answerCancel := context.WithCancel(runtime.baseContext)
	defer answerCancel()

	go func() {
		select {
		case <-runtime.closeCh:
			answerCancel()
		case <-answerCtx.Done():
		}
	}()

	ctx, span := tracer.Start(answerCtx, "process answer")
	defer span.End()

	queuedTime := time.Since(item.queuedAt).Seconds()
	span.AddEvent("taken out of queue", trace.WithAttributes(attribute.Float64("answer.queued_time", queuedTime)))
	span.SetAttributes(
		attribute.Float64("answer.queued_time", queuedTime),
		attribute.Int("answer.queued_answers", runtime.queuedCount()),
	)

	worker := panicSafeNamedWorker("question request", func(ctx context.Context) error {
		return runtime.process(ctx, item)
	})
	if err := worker(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
