// Package runtime implements the dispatch pipeline and undo/redo history
// that sit on top of state.State: spec.md §4.3's filter/apply/evolve/append
// fixed point, §4.4's exclusive-guarded dispatch with before/after
// middleware, and §4.4's history-backed Undo/Redo/Jump. Grounded on
// original_source's core/src/flow.rs and crates/core/src/runtime/
// {sync_flow,async_flow}.rs for the overall shape of a guarded dispatch
// loop, though those files only wrap state.apply(tr) opaquely; the pipeline
// itself follows spec.md §4.3's pseudocode directly. The exclusive guard
// uses github.com/sasha-s/go-deadlock in place of a bare sync.Mutex, the
// same deadlock-detecting drop-in the teacher reaches for around its own
// trie mutations.
package runtime

import (
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/atomic"

	"github.com/docweave/docweave/eventbus"
	"github.com/docweave/docweave/logging"
	"github.com/docweave/docweave/metrics"
	"github.com/docweave/docweave/middleware"
	"github.com/docweave/docweave/plugin"
	"github.com/docweave/docweave/pool"
	"github.com/docweave/docweave/schema"
	"github.com/docweave/docweave/state"
)

// Created is broadcast once, right after a Runtime's initial State is
// built, mirroring original_source's event_helper.rs broadcasting an
// Event::Create on startup.
type Created struct {
	State *state.State
}

// Runtime owns the current State behind an exclusive guard, a resolved
// plugin set, a middleware stack, bounded history, and an event bus
// (spec.md §3.6).
type Runtime struct {
	mu deadlock.Mutex

	current *state.State
	plugins []*plugin.Plugin
	stack   *middleware.Stack
	history *History
	bus     *eventbus.Bus
	options Options
	log     logging.Logger
	metrics *metrics.Collector

	nextTxID atomic.Uint64
}

// RuntimeOption configures optional Runtime dependencies that don't belong
// in the YAML-loadable Options (spec.md §2.2's ambient logging concern).
type RuntimeOption func(*Runtime)

// WithLogger attaches a Logger a Runtime uses for dispatch, history, and
// lifecycle diagnostics. The default is logging.Discard.
func WithLogger(l logging.Logger) RuntimeOption {
	return func(rt *Runtime) { rt.log = l }
}

// WithMetrics attaches a metrics.Collector a Runtime reports dispatch
// latency, append-phase round counts, transaction filtering, and event bus
// drops to. The default is metrics.Noop.
func WithMetrics(c *metrics.Collector) RuntimeOption {
	return func(rt *Runtime) { rt.metrics = c }
}

// Create builds a fresh Runtime over doc at version 0, resolving plugins
// (spec.md §4.9) and running every plugin's state_field.Init in priority
// order (spec.md §4.3 point 3 applied once, at startup).
func Create(options Options, cfg state.Config, s *schema.Schema, doc *pool.Pool, plugins []*plugin.Plugin, stack *middleware.Stack, opts ...RuntimeOption) (*Runtime, error) {
	return createAt(options, cfg, s, doc, 0, plugins, stack, opts...)
}

// Resume builds a Runtime whose initial State begins at a specific version
// and document, as produced by persistence recovery replaying a log onto a
// snapshot (spec.md §6.4's Runtime::from_snapshot). Plugin state fields are
// still (re)initialized via Init, since persistence recovery does not
// restore the plugin field values that snapshots record.
func Resume(options Options, cfg state.Config, s *schema.Schema, doc *pool.Pool, version uint64, plugins []*plugin.Plugin, stack *middleware.Stack, opts ...RuntimeOption) (*Runtime, error) {
	return createAt(options, cfg, s, doc, version, plugins, stack, opts...)
}

func createAt(options Options, cfg state.Config, s *schema.Schema, doc *pool.Pool, version uint64, plugins []*plugin.Plugin, stack *middleware.Stack, opts ...RuntimeOption) (*Runtime, error) {
	resolved, err := plugin.Resolve(plugins)
	if err != nil {
		return nil, err
	}
	resources := state.NewResourceManager()
	initial := state.Resume(cfg, s, doc, version, resources)
	for _, p := range resolved {
		if p.StateField == nil {
			continue
		}
		value, err := p.StateField.Init(cfg, initial)
		if err != nil {
			return nil, err
		}
		initial = initial.WithPluginField(p.Key, value)
	}
	if stack == nil {
		stack = middleware.NewStack()
	}

	rt := &Runtime{
		current: initial,
		plugins: resolved,
		stack:   stack,
		history: NewHistory(options.HistoryLimit, initial),
		options: options,
		log:     logging.Discard,
		metrics: metrics.Noop,
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.bus = eventbus.New(options.EventQueueCapacity, eventbus.WithDropHook(rt.metrics.EventsDropped.Inc))
	rt.log.Info("runtime created", logging.F("version", version), logging.F("plugins", len(resolved)))
	rt.bus.Publish(Created{State: initial})
	return rt, nil
}

// State returns the current State (cheap: State is immutable, so sharing
// the pointer is safe).
func (rt *Runtime) State() *state.State {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.current
}

// Extensions returns the resolved plugin set in dispatch order.
func (rt *Runtime) Extensions() []*plugin.Plugin {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]*plugin.Plugin, len(rt.plugins))
	copy(out, rt.plugins)
	return out
}

// Subscribe registers a new event bus subscriber (spec.md §4.5, §6.4).
func (rt *Runtime) Subscribe() *eventbus.Subscription {
	return rt.bus.Subscribe()
}

// Bus exposes the underlying event bus so a persistence Writer (or any
// other subscriber living outside this package) can wire itself in
// directly rather than going through a Subscription's raw channel.
func (rt *Runtime) Bus() *eventbus.Bus {
	return rt.bus
}

// Shutdown broadcasts Destroy and drains the event bus (spec.md §4.5).
func (rt *Runtime) Shutdown(timeout time.Duration) {
	rt.bus.Destroy(timeout)
}

// NewTransaction opens a Transaction against the current State. Callers
// record steps on it, then pass it to Dispatch.
func (rt *Runtime) NewTransaction() *state.Transaction {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return state.NewTransaction(rt.nextTxID.Inc(), rt.current)
}

// Command is the ergonomic entry point (spec.md §6.4): fn records steps
// against a fresh Transaction opened on the current State, and on success
// the transaction is dispatched.
func (rt *Runtime) Command(fn func(tr *state.Transaction) error) (*state.State, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	tr := state.NewTransaction(rt.nextTxID.Inc(), rt.current)
	if err := fn(tr); err != nil {
		return nil, err
	}
	return rt.dispatch(rt.current, tr, 0)
}

// Dispatch runs tr through the full pipeline (spec.md §4.3, §4.4) and
// installs the result as the current State.
func (rt *Runtime) Dispatch(tr *state.Transaction) (*state.State, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.dispatch(rt.current, tr, 0)
}

// dispatch implements spec.md §4.4's guarded dispatch steps 2-7 (the guard
// itself, step 1 and step 8, is held by the caller for the whole call
// tree). depth bounds middleware-triggered recursive re-dispatch.
func (rt *Runtime) dispatch(base *state.State, tr *state.Transaction, depth int) (*state.State, error) {
	if depth == 0 {
		start := time.Now()
		defer func() { rt.metrics.DispatchDuration.Observe(time.Since(start).Seconds()) }()
	}
	if depth > rt.options.MaxMiddlewareDepth {
		rt.log.Warn("middleware depth exceeded", logging.F("depth", depth))
		return nil, newMiddlewareDepthExceeded(rt.options.MaxMiddlewareDepth)
	}
	if err := rt.stack.RunBefore(tr); err != nil {
		return nil, err
	}

	applied, newState, err := rt.applyPipeline(base, tr)
	if err != nil {
		return nil, err
	}

	proposed, err := rt.stack.RunAfter(newState, applied)
	if err != nil {
		return nil, err
	}
	if proposed != nil {
		// The proposed transaction dispatches recursively under the same
		// guard, against newState, before the current State is replaced
		// (spec.md §4.4 point 4 runs before point 5).
		final, err := rt.dispatch(newState, proposed, depth+1)
		if err != nil {
			return nil, err
		}
		newState = final
	}

	rt.current = newState
	rt.history.Push(&Entry{
		Transactions: applied,
		Snapshot:     newState,
		Description:  tr.Describe(),
		Meta:         tr.MetaAll(),
		Timestamp:    time.Now(),
	})
	rt.log.Debug("dispatch committed", logging.F("tx", tr.ID()), logging.F("appended", len(applied)), logging.F("depth", depth))
	rt.bus.Publish(Applied{OldState: base, NewState: newState, Transactions: applied})
	return newState, nil
}

// applyPipeline implements spec.md §4.3: filter, primary apply, field
// evolution, then the append-phase fixed point.
func (rt *Runtime) applyPipeline(base *state.State, tr *state.Transaction) ([]*state.Transaction, *state.State, error) {
	if err := rt.filter(tr, base); err != nil {
		return nil, nil, err
	}

	current, err := base.Apply(tr)
	if err != nil {
		return nil, nil, err
	}

	current, err = rt.evolveFields(tr, base, current)
	if err != nil {
		return nil, nil, err
	}

	applied := []*state.Transaction{tr}
	rounds := 0
	for {
		rounds++
		appendedThisPass := false
		for _, p := range rt.plugins {
			if p.TraitImpl == nil {
				continue
			}
			next, ok := p.TraitImpl.AppendTransaction(applied, base, current)
			if !ok || next == nil {
				continue
			}
			if err := rt.filter(next, current); err != nil {
				return nil, nil, err
			}
			current, err = current.Apply(next)
			if err != nil {
				return nil, nil, err
			}
			applied = append(applied, next)
			if len(applied)-1 > rt.options.MaxAppendedTransactions {
				rt.log.Warn("append-phase cap exceeded", logging.F("cap", rt.options.MaxAppendedTransactions))
				return nil, nil, newTransactionLoop(rt.options.MaxAppendedTransactions)
			}
			appendedThisPass = true
			// Restart the plugin loop from the beginning so every plugin
			// observes the newly appended transaction (spec.md §4.3 point
			// 4: "restart the plugin loop from the beginning of the list").
			break
		}
		if !appendedThisPass {
			break
		}
	}
	// Each call to State.Apply bumps version by one on its own, but spec.md
	// §8's P3 counts the whole dispatch — primary transaction plus every
	// plugin-appended one — as a single version increment. Collapse
	// whatever version the repeated Apply calls above landed on back to
	// exactly base.Version()+1.
	current = current.WithVersion(base.Version() + 1)
	rt.metrics.AppendPhaseRounds.Observe(float64(rounds))
	return applied, current, nil
}

func (rt *Runtime) filter(tr *state.Transaction, s *state.State) error {
	for _, p := range rt.plugins {
		if p.TraitImpl == nil {
			continue
		}
		if !p.TraitImpl.FilterTransaction(tr, s) {
			rt.log.Debug("transaction filtered", logging.F("plugin", p.Key.String()), logging.F("tx", tr.ID()))
			rt.metrics.TransactionsFiltered.Inc()
			return newTransactionFiltered(p.Key.String())
		}
	}
	return nil
}

func (rt *Runtime) evolveFields(tr *state.Transaction, oldState, newState *state.State) (*state.State, error) {
	current := newState
	for _, p := range rt.plugins {
		if p.StateField == nil {
			continue
		}
		oldValue, _ := oldState.PluginField(p.Key)
		value, err := p.StateField.Apply(tr, oldValue, oldState, current)
		if err != nil {
			return nil, err
		}
		current = current.WithPluginField(p.Key, value)
	}
	return current, nil
}

// Undo restores the state before the most recently applied entry (spec.md
// §4.4).
func (rt *Runtime) Undo() (*state.State, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	_, restored, ok := rt.history.Undo()
	if !ok {
		return nil, ErrNoHistory
	}
	old := rt.current
	rt.current = restored
	rt.log.Info("undo applied")
	rt.bus.Publish(Undo{OldState: old, NewState: restored})
	return restored, nil
}

// Redo restores the state undone by the most recent Undo.
func (rt *Runtime) Redo() (*state.State, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	_, restored, ok := rt.history.Redo()
	if !ok {
		return nil, ErrNoHistory
	}
	old := rt.current
	rt.current = restored
	rt.log.Info("redo applied")
	rt.bus.Publish(Redo{OldState: old, NewState: restored})
	return restored, nil
}

// Jump composes |n| undos (n<0) or redos (n>0) atomically, broadcasting a
// single composite Jump event (spec.md §4.4).
func (rt *Runtime) Jump(n int) (*state.State, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if n == 0 {
		return rt.current, nil
	}

	if (n < 0 && len(rt.history.entries) < -n) || (n > 0 && len(rt.history.redo) < n) {
		return nil, ErrNoHistory
	}

	old := rt.current
	restored := rt.current
	var crossed [][]*state.Transaction

	if n < 0 {
		for i := 0; i < -n; i++ {
			entry, s, ok := rt.history.Undo()
			if !ok {
				return nil, ErrNoHistory
			}
			crossed = append(crossed, entry.Transactions)
			restored = s
		}
	} else {
		for i := 0; i < n; i++ {
			entry, s, ok := rt.history.Redo()
			if !ok {
				return nil, ErrNoHistory
			}
			crossed = append(crossed, entry.Transactions)
			restored = s
		}
	}

	rt.current = restored
	rt.log.Info("jump applied", logging.F("steps", n), logging.F("crossed", len(crossed)))
	rt.bus.Publish(Jump{OldState: old, NewState: restored, Steps: n, Transactions: crossed})
	return restored, nil
}
