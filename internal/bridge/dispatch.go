package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scenebridge/bridgectl/internal/observability"
	"github.com/scenebridge/bridgectl/internal/scene"
)

// SentinelReply stands in for "no value". The transport cannot carry an
// empty message unambiguously, so an explicit empty/none result is always
// reported as this literal, distinct from no reply at all.
const SentinelReply = "None"

var ErrMissingParameters = errors.New("bridge: command requires parameters")

// HandlerFunc executes one verb. A nil result maps to the sentinel reply, a
// string result is sent as-is, and any other value is JSON-encoded before
// transmission. Handlers never write to the connection themselves.
type HandlerFunc func(d *Dispatcher, params string) (any, error)

// Dispatcher owns the verb table and all state the host API requires to be
// touched from a single execution context: the identity table, the units
// converter and the simulated-entity set. It is instantiable per service so
// tests can run engines side by side; nothing here is package-level state.
type Dispatcher struct {
	sc       scene.Adapter
	idents   *IdentityTable
	units    *UnitsConverter
	queue    *CommandQueue
	handlers map[string]HandlerFunc

	simulated []scene.EntityRef
}

func NewDispatcher(sc scene.Adapter, units *UnitsConverter, queue *CommandQueue) *Dispatcher {
	d := &Dispatcher{
		sc:     sc,
		idents: NewIdentityTable(sc),
		units:  units,
		queue:  queue,
	}
	d.handlers = commandTable()
	return d
}

// Identity exposes the dispatcher-owned identity table.
func (d *Dispatcher) Identity() *IdentityTable {
	return d.idents
}

// Run drains the queue until the context is canceled. This is the single
// consumer: every scene mutation in the process funnels through here, which
// is what makes the lock-free identity table and simulated set safe.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		cmd, err := d.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		observability.SetQueueDepth(d.queue.Depth())
		reply := d.Execute(string(cmd.Line))
		if cmd.WantReply && cmd.Reply != nil {
			cmd.Reply.WriteReply(reply)
		}
	}
}

// Execute runs one command line to completion and returns its reply. Handler
// panics are contained here: the loop must outlive any single command, so a
// crash degrades to the sentinel reply.
func (d *Dispatcher) Execute(line string) (reply string) {
	start := time.Now()
	line = strings.TrimSpace(strings.ReplaceAll(line, "\r", ""))
	if line == "" {
		return SentinelReply
	}
	verb, params, _ := strings.Cut(line, " ")
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("bridge.Dispatcher.Execute handler panic verb=%q err=%v", verb, r)
			outcome = "panic"
			reply = SentinelReply
		}
		observability.RecordCommand(verb, outcome, time.Since(start))
	}()

	handler, known := d.handlers[verb]
	if !known {
		if params == "" {
			outcome = "noop"
			return SentinelReply
		}
		// Unknown verb with parameters: the whole frame is a native
		// host-scripting expression from a trusted, co-located controller.
		outcome = "passthrough"
		out, err := d.sc.ExecuteNativeExpression(line)
		if err != nil {
			log.Warn().Msgf("bridge.Dispatcher.Execute native expression failed verb=%q err=%v", verb, err)
			return SentinelReply
		}
		return encodeReply(out)
	}

	result, err := handler(d, params)
	if err != nil {
		if errors.Is(err, ErrMissingParameters) {
			log.Debug().Msgf("bridge.Dispatcher.Execute missing parameters verb=%q", verb)
			outcome = "noop"
		} else {
			log.Warn().Msgf("bridge.Dispatcher.Execute handler failed verb=%q err=%v", verb, err)
			outcome = "error"
		}
		return SentinelReply
	}
	return encodeReply(result)
}

// encodeReply serializes a handler result for the wire.
func encodeReply(result any) string {
	switch v := result.(type) {
	case nil:
		return SentinelReply
	case string:
		if v == "" {
			return SentinelReply
		}
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			log.Error().Msgf("bridge.encodeReply marshal err=%v", err)
			return SentinelReply
		}
		return string(raw)
	}
}
