package server

import (
	"log"

	"github.com/enmanuelbasulto/fop2-clone/internal/ami"
	"github.com/enmanuelbasulto/fop2-clone/internal/broadcast"
	"github.com/enmanuelbasulto/fop2-clone/internal/events"
	"github.com/enmanuelbasulto/fop2-clone/internal/metrics"
	"github.com/enmanuelbasulto/fop2-clone/internal/state"
	"github.com/enmanuelbasulto/fop2-clone/internal/stats"
)

// Engine is the single consumer of the exchange event stream. It normalizes
// each raw event, applies it to the state store and the statistics
// aggregator, then fans the result out to sessions. Running it on one
// goroutine is what guarantees state transitions are observed in order.
type Engine struct {
	source      <-chan ami.RawEvent
	normalizer  *events.Normalizer
	store       *state.Store
	aggregator  *stats.Aggregator
	broadcaster *broadcast.Broadcaster
	logger      *log.Logger

	done chan struct{}
}

func NewEngine(source <-chan ami.RawEvent, n *events.Normalizer, st *state.Store, agg *stats.Aggregator, b *broadcast.Broadcaster, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		source:      source,
		normalizer:  n,
		store:       st,
		aggregator:  agg,
		broadcaster: b,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Run consumes events until the source channel closes. It blocks; run it on
// its own goroutine.
func (e *Engine) Run() {
	defer close(e.done)
	m := metrics.Get()
	for raw := range e.source {
		ev, ok := e.normalizer.Normalize(raw)
		if !ok {
			m.EventsDropped.Inc()
			continue
		}
		m.EventsProcessed.WithLabelValues(raw.Name).Inc()
		e.store.Apply(ev)
		e.aggregator.Apply(ev)
		e.broadcaster.Dispatch(ev)
	}
	e.logger.Printf("engine: event stream closed")
}

// Done is closed once Run has drained the stream and returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}
