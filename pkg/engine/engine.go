// Package engine composes the lexer, postfix reorderer, emitter and stack
// machine into a single compile-and-run pipeline.
package engine

import (
	"fmt"
	"sync"

	"github.com/edwingeng/deque"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/sirupsen/logrus"

	"github.com/agenthands/nexpr/pkg/compiler/emitter"
	"github.com/agenthands/nexpr/pkg/compiler/lexer"
	"github.com/agenthands/nexpr/pkg/compiler/postfix"
	"github.com/agenthands/nexpr/pkg/core/value"
	"github.com/agenthands/nexpr/pkg/vm"
)

// Program is a compiled expression ready to run any number of times.
// Each Compile call returns its own Program; modifying one never affects the
// engine's cache.
type Program struct {
	Source   string
	Code     []byte
	Result   value.Type
	MaxDepth int
}

// clone returns a copy of p that shares no memory with it.
func (p *Program) clone() *Program {
	cp := *p
	cp.Code = append([]byte(nil), p.Code...)
	return &cp
}

// Engine compiles and evaluates expressions with fixed-capacity buffers.
// It is safe for concurrent use.
type Engine struct {
	cfg Config

	machines sync.Pool

	mu    sync.Mutex
	cache map[uint64]*Program
	order deque.Deque // cache keys, oldest first
}

// New creates an engine with the given capacities.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:   cfg,
		cache: make(map[uint64]*Program),
		order: deque.NewDeque(),
	}
	e.machines.New = func() any { return vm.NewMachine(cfg.StackDepth) }
	log.WithField("config", cfg).Debug("engine created")
	return e, nil
}

// Config returns the capacities the engine was created with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Compile runs the three producing stages. The first failing stage aborts
// the rest; its *diag.Error is wrapped with the stage name.
func (e *Engine) Compile(src string) (*Program, error) {
	key := fnv1a.HashString64(src)
	if p := e.lookup(key, src); p != nil {
		log.WithField("source", src).Debug("compile cache hit")
		return p.clone(), nil
	}

	task := log.WithFields(logrus.Fields{"source": src})
	b := []byte(src)

	tokens := make([]lexer.Token, e.cfg.TokenCapacity)
	n, err := lexer.Tokenize(b, tokens)
	if err != nil {
		task.WithError(err).Debug("tokenize failed")
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	ordered := make([]lexer.Token, e.cfg.TokenCapacity)
	m, err := postfix.Convert(tokens[:n], ordered)
	if err != nil {
		task.WithError(err).Debug("postfix failed")
		return nil, fmt.Errorf("postfix: %w", err)
	}

	em := emitter.NewEmitter(b)
	em.StackDepth = e.cfg.StackDepth
	bc, err := em.Emit(ordered[:m], make([]byte, e.cfg.CodeCapacity))
	if err != nil {
		task.WithError(err).Debug("emit failed")
		return nil, fmt.Errorf("emit: %w", err)
	}

	p := &Program{
		Source:   src,
		Code:     bc.Code,
		Result:   bc.Result,
		MaxDepth: bc.MaxDepth,
	}
	task.WithFields(logrus.Fields{
		"tokens": n,
		"bytes":  len(p.Code),
		"depth":  p.MaxDepth,
		"result": p.Result,
	}).Debug("compiled")

	e.store(key, p.clone())
	return p, nil
}

// Run evaluates a compiled program on a pooled machine.
func (e *Engine) Run(p *Program) value.Value {
	m := e.machines.Get().(*vm.Machine)
	defer e.machines.Put(m)
	return m.Evaluate(p.Code)
}

// CompileAndRun compiles src and evaluates it. On failure it returns None
// and the error.
func (e *Engine) CompileAndRun(src string) (value.Value, error) {
	p, err := e.Compile(src)
	if err != nil {
		return value.None(), err
	}
	return e.Run(p), nil
}

func (e *Engine) lookup(key uint64, src string) *Program {
	if e.cfg.CacheSize == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.cache[key]; ok && p.Source == src {
		return p
	}
	return nil
}

func (e *Engine) store(key uint64, p *Program) {
	if e.cfg.CacheSize == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.cache[key]; !ok {
		e.order.PushBack(key)
	}
	e.cache[key] = p
	for e.order.Len() > e.cfg.CacheSize {
		delete(e.cache, e.order.PopFront().(uint64))
	}
}

// CacheLen reports the number of cached programs.
func (e *Engine) CacheLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// CompileAndRun runs src through the pipeline with DefaultConfig capacities.
func CompileAndRun(src string) (value.Value, error) {
	defaultOnce.Do(func() {
		cfg := DefaultConfig()
		cfg.CacheSize = 0
		defaultEngine, _ = New(cfg)
	})
	return defaultEngine.CompileAndRun(src)
}
