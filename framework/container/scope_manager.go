package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Instance cache ────────────────────────────────────────────────────────────

type cacheEntry struct {
	binding  *Binding
	instance any
}

// instanceCache maps bindings to constructed instances and remembers
// construction order for disposal.
type instanceCache struct {
	mu        sync.RWMutex
	instances map[string]any
	order     []cacheEntry
	closed    bool
}

func newInstanceCache() *instanceCache {
	return &instanceCache{instances: make(map[string]any)}
}

func (c *instanceCache) get(b *Binding) (instance any, ok bool, closed bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	instance, ok = c.instances[b.id]
	return instance, ok, c.closed
}

// put stores an instance; it reports false once the cache has been drained.
func (c *instanceCache) put(b *Binding, instance any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.instances[b.id] = instance
	c.order = append(c.order, cacheEntry{binding: b, instance: instance})
	return true
}

type putResult int

const (
	putStored putResult = iota
	putExists
	putClosed
)

func (c *instanceCache) putIfAbsent(b *Binding, instance any) putResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return putClosed
	}
	if _, ok := c.instances[b.id]; ok {
		return putExists
	}
	c.instances[b.id] = instance
	c.order = append(c.order, cacheEntry{binding: b, instance: instance})
	return putStored
}

// drain closes the cache and returns its entries in construction order.
func (c *instanceCache) drain() []cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.order
	c.closed = true
	c.order = nil
	c.instances = make(map[string]any)
	return entries
}

func (c *instanceCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Len returns the number of instances cached in the scope.
func (s *RequestScope) Len() int {
	if s == nil {
		return 0
	}
	return s.cache.len()
}

// ── Request scope handle ──────────────────────────────────────────────────────

// RequestScope is the handle for one in-flight request's cache. It is owned by
// the flow that opened it and must not outlive the request.
type RequestScope struct {
	id     uuid.UUID
	ctx    context.Context
	span   trace.Span
	opened time.Time
	cache  *instanceCache
}

// ID returns the scope identifier.
func (s *RequestScope) ID() string {
	if s == nil {
		return ""
	}
	return s.id.String()
}

// Context returns the context the scope was opened with, carrying its span.
func (s *RequestScope) Context() context.Context {
	if s == nil {
		return context.Background()
	}
	return s.ctx
}

// Active reports whether the scope is still open.
func (s *RequestScope) Active() bool {
	if s == nil {
		return false
	}
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	return !s.cache.closed
}

// ── In-flight constructions ───────────────────────────────────────────────────

type flightKey struct {
	scope   *RequestScope
	binding string
}

// flight is one construction in progress. Callers that find it wait on done
// unless the wait-for graph through owner closes back on themselves.
type flight struct {
	done     chan struct{}
	val      any
	err      error
	contract Contract
	owner    *chain
	ch       *chain
}

// ── ScopeManager ──────────────────────────────────────────────────────────────

// ScopeManager owns the singleton cache and the open request scopes.
type ScopeManager struct {
	log     *zap.Logger
	metrics *Metrics
	tracer  trace.Tracer

	singletons atomic.Pointer[instanceCache]

	mu   sync.Mutex
	open map[uuid.UUID]*RequestScope

	flightMu sync.Mutex
	flights  map[flightKey]*flight
	waiting  map[*chain]*flight
}

// NewScopeManager creates a scope manager with an empty singleton cache.
func NewScopeManager(opts ...Option) *ScopeManager {
	o := newOptions(opts)
	m := &ScopeManager{
		log:     o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
		open:    make(map[uuid.UUID]*RequestScope),
		flights: make(map[flightKey]*flight),
		waiting: make(map[*chain]*flight),
	}
	m.singletons.Store(newInstanceCache())
	return m
}

// OpenRequestScope creates a new request scope handle.
func (m *ScopeManager) OpenRequestScope(ctx context.Context) *RequestScope {
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.New()
	ctx, span := m.tracer.Start(ctx, "request.scope",
		trace.WithAttributes(attribute.String("dicontainer.scope.id", id.String())))

	s := &RequestScope{
		id:     id,
		ctx:    ctx,
		span:   span,
		opened: time.Now(),
		cache:  newInstanceCache(),
	}

	m.mu.Lock()
	m.open[id] = s
	m.mu.Unlock()

	m.metrics.scopeOpened()
	m.log.Debug("request scope opened", zap.String("scope_id", s.ID()))
	return s
}

// CloseRequestScope disposes every instance cached in the scope, dependents
// first, then discards the cache. All disposals are attempted; failures are
// returned together as ConstructionFailedErrors.
func (m *ScopeManager) CloseRequestScope(s *RequestScope) error {
	if s == nil {
		return InvalidScopeHandleError{}
	}

	m.mu.Lock()
	current, ok := m.open[s.id]
	if ok && current == s {
		delete(m.open, s.id)
	}
	m.mu.Unlock()
	if !ok || current != s {
		return InvalidScopeHandleError{ID: s.ID()}
	}

	entries := s.cache.drain()
	err := m.disposeAll(entries)

	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, "disposal failed")
	}
	s.span.SetAttributes(attribute.Int("dicontainer.scope.instances", len(entries)))
	s.span.End()

	m.metrics.scopeClosed()
	m.log.Debug("request scope closed",
		zap.String("scope_id", s.ID()),
		zap.Int("instances", len(entries)),
		zap.Duration("lifetime", time.Since(s.opened)),
	)
	return err
}

// OpenScopes returns the number of request scopes currently open.
func (m *ScopeManager) OpenScopes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// Shutdown disposes all constructed singletons in reverse construction order.
// Singletons requested afterwards are built again.
func (m *ScopeManager) Shutdown() error {
	old := m.singletons.Swap(newInstanceCache())
	entries := old.drain()
	err := m.disposeAll(entries)
	m.log.Info("singletons disposed", zap.Int("instances", len(entries)), zap.Error(err))
	return err
}

// GetOrCreate returns the instance for b according to its scope:
//   - Singleton: cached process-wide, constructed by exactly one caller;
//   - RequestScoped: cached in s, constructed once per scope;
//   - PerLookup: constructed on every call.
//
// Concurrent callers waiting on a construction observe its failure; failures
// are never cached.
func (m *ScopeManager) GetOrCreate(b *Binding, s *RequestScope, construct func() (any, error)) (any, error) {
	return m.getOrCreate(b, s, newChain(s, nil), construct)
}

func (m *ScopeManager) getOrCreate(b *Binding, s *RequestScope, ch *chain, construct func() (any, error)) (any, error) {
	switch b.Scope {
	case Singleton:
		return m.memoize(m.singletons.Load(), flightKey{binding: b.id}, b, s, ch, construct)
	case RequestScoped:
		if s == nil {
			return nil, NoActiveScopeError{Contract: b.Contract}
		}
		return m.memoize(s.cache, flightKey{scope: s, binding: b.id}, b, s, ch, construct)
	case PerLookup:
		return m.build(b, s, construct)
	default:
		return nil, fmt.Errorf("container: %s has unknown scope %d", b.Contract, int(b.Scope))
	}
}

// Seed stores v as the instance of the request-scoped binding b in s.
func (m *ScopeManager) Seed(s *RequestScope, b *Binding, v any) error {
	if b.Scope != RequestScoped {
		return fmt.Errorf("container: cannot seed %s binding %s", b.Scope, b.Contract)
	}
	if !s.Active() {
		return NoActiveScopeError{Contract: b.Contract}
	}
	switch s.cache.putIfAbsent(b, v) {
	case putClosed:
		return NoActiveScopeError{Contract: b.Contract}
	case putExists:
		return fmt.Errorf("container: %s already present in request scope %s", b.Contract, s.ID())
	}
	return nil
}

func (m *ScopeManager) memoize(cache *instanceCache, key flightKey, b *Binding, s *RequestScope, ch *chain, construct func() (any, error)) (any, error) {
	if v, ok, closed := cache.get(b); ok {
		return v, nil
	} else if closed {
		return nil, NoActiveScopeError{Contract: b.Contract}
	}

	me := ch.actor()
	m.flightMu.Lock()
	if f, ok := m.flights[key]; ok {
		if cycle := m.waitCycle(me, ch, f); cycle != nil {
			m.flightMu.Unlock()
			return nil, CyclicDependencyError{Path: cycle}
		}
		m.waiting[me] = f
		m.flightMu.Unlock()

		<-f.done

		m.flightMu.Lock()
		delete(m.waiting, me)
		m.flightMu.Unlock()
		return f.val, f.err
	}
	if v, ok, _ := cache.get(b); ok {
		m.flightMu.Unlock()
		return v, nil
	}
	f := &flight{done: make(chan struct{}), contract: b.Contract, owner: me, ch: ch}
	m.flights[key] = f
	m.flightMu.Unlock()

	defer func() {
		m.flightMu.Lock()
		delete(m.flights, key)
		m.flightMu.Unlock()
		close(f.done)
	}()

	v, err := m.build(b, s, construct)
	if err != nil {
		f.err = err
		return nil, err
	}
	if !cache.put(b, v) {
		// The scope closed mid-construction.
		_ = safeCall(func() error { return b.dispose(v) })
		f.err = NoActiveScopeError{Contract: b.Contract}
		return nil, f.err
	}
	f.val = v
	return v, nil
}

// waitCycle follows the wait-for edges from the owner of f. If they lead back
// to me, waiting on f would never return; the returned path names the
// constructions involved, starting and ending at the one ch is building.
// Callers hold flightMu.
func (m *ScopeManager) waitCycle(me, ch *chain, f *flight) []Contract {
	var hops []*flight
	for next := f; next != nil; next = m.waiting[next.owner] {
		hops = append(hops, next)
		if next.owner == me {
			return cyclePath(ch, hops)
		}
		if len(hops) > len(m.waiting)+1 {
			return nil
		}
	}
	return nil
}

func cyclePath(ch *chain, hops []*flight) []Contract {
	var path []Contract
	for _, h := range hops {
		p := h.ch.path()
		for i, c := range p {
			if c == h.contract {
				p = p[i:]
				break
			}
		}
		path = append(path, p...)
	}
	own := ch.path()
	if len(own) == 0 {
		return append(path, hops[0].contract)
	}
	start := own[len(own)-1]
	out := append([]Contract{start}, path...)
	if out[len(out)-1] != start {
		out = append(out, start)
	}
	return out
}

// build runs construct under a span, converting panics into errors.
func (m *ScopeManager) build(b *Binding, s *RequestScope, construct func() (any, error)) (instance any, err error) {
	_, span := m.tracer.Start(s.Context(), "construct", trace.WithAttributes(
		attribute.String("dicontainer.contract", b.Contract.String()),
		attribute.String("dicontainer.scope", b.Scope.String()),
	))
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = ConstructionFailedError{Contract: b.Contract, Phase: PhaseConstruct, Err: fmt.Errorf("panic: %v", rec)}
			instance = nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "construction failed")
		} else {
			m.metrics.constructed(b.Scope, time.Since(start))
		}
		span.End()
	}()

	instance, err = construct()
	if err != nil {
		return nil, err
	}
	m.log.Debug("instance constructed",
		zap.Stringer("contract", b.Contract),
		zap.Stringer("scope", b.Scope),
		zap.Duration("took", time.Since(start)),
	)
	return instance, nil
}

func (m *ScopeManager) disposeAll(entries []cacheEntry) error {
	var errs error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := safeCall(func() error { return e.binding.dispose(e.instance) }); err != nil {
			m.metrics.disposalFailed()
			m.log.Warn("disposal failed", zap.Stringer("contract", e.binding.Contract), zap.Error(err))
			errs = multierr.Append(errs, ConstructionFailedError{
				Contract: e.binding.Contract,
				Phase:    PhaseDispose,
				Err:      err,
			})
		}
	}
	return errs
}

// safeCall runs fn, converting a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
