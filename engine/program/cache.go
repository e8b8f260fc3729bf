package program

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"go.uber.org/zap"
)

// SourceFunc produces the vertex and fragment stages of a program. It is only called when the
// cache has no live program for the requested signature.
type SourceFunc func() (vertex, fragment string, req Requirements, err error)

// cacheEntry is one live program and the number of handles referencing it.
type cacheEntry struct {
	program *Program
	users   int
}

// cacheImpl is the implementation of the Cache interface.
type cacheImpl struct {
	mu       sync.Mutex
	ctx      gpu.Context
	entries  map[Signature]*cacheEntry
	compiles int
	log      *zap.Logger
}

// Cache shares compiled programs between every user of the same Signature.
//
// Acquire compiles a program on the first request for a signature and hands out counted
// handles afterwards. Releasing the last handle deletes the program from the context and
// forgets the signature, so a later Acquire compiles again.
type Cache interface {
	// Acquire returns a handle to the program for sig, compiling it with source on a miss.
	//
	// Parameters:
	//   - sig: the program signature
	//   - source: produces the program stages, only called on a miss
	//
	// Returns:
	//   - *Handle: a handle that must be released when the caller is done with the program
	//   - error: a *ShaderCompileError if compilation failed, no entry is left behind
	Acquire(sig Signature, source SourceFunc) (*Handle, error)

	// Len returns the number of live programs.
	//
	// Returns:
	//   - int: the number of signatures with a compiled program
	Len() int

	// Users returns the number of live handles for sig.
	//
	// Parameters:
	//   - sig: the program signature
	//
	// Returns:
	//   - int: the live handle count, zero when sig has no program
	Users(sig Signature) int

	// Compiles returns how many programs the cache has compiled over its lifetime.
	//
	// Returns:
	//   - int: the number of successful compilations
	Compiles() int

	// Clear deletes every live program. Outstanding handles become inert.
	Clear()
}

var _ Cache = &cacheImpl{}

// NewCache creates an empty Cache compiling programs on ctx.
//
// Parameters:
//   - ctx: the graphics context programs are compiled on
//
// Returns:
//   - Cache: the new cache
func NewCache(ctx gpu.Context) Cache {
	return &cacheImpl{
		ctx:     ctx,
		entries: make(map[Signature]*cacheEntry),
		log:     logger.Named("program"),
	}
}

func (c *cacheImpl) Acquire(sig Signature, source SourceFunc) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[sig]; ok {
		e.users++
		return &Handle{cache: c, entry: e}, nil
	}

	vs, fs, req, err := source()
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", sig, err)
	}
	id, err := c.ctx.CreateProgram(vs, fs)
	if err != nil {
		c.log.Warn("program compilation failed", zap.Stringer("signature", sig), zap.Error(err))
		return nil, &ShaderCompileError{Message: fmt.Sprintf("%s: %v", sig, err)}
	}
	c.compiles++
	e := &cacheEntry{
		program: &Program{ID: id, Signature: sig, Requirements: req},
		users:   1,
	}
	c.entries[sig] = e
	c.log.Debug("program compiled", zap.Stringer("signature", sig), zap.Uint32("id", uint32(id)))
	return &Handle{cache: c, entry: e}, nil
}

func (c *cacheImpl) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *cacheImpl) Users(sig Signature) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[sig]; ok {
		return e.users
	}
	return 0
}

func (c *cacheImpl) Compiles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compiles
}

func (c *cacheImpl) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sig, e := range c.entries {
		c.ctx.DeleteProgram(e.program.ID)
		e.users = 0
		delete(c.entries, sig)
	}
}

// release drops one user of e, deleting the program when it was the last.
func (c *cacheImpl) release(e *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sig := e.program.Signature
	if c.entries[sig] != e {
		return
	}
	e.users--
	if e.users > 0 {
		return
	}
	c.ctx.DeleteProgram(e.program.ID)
	delete(c.entries, sig)
	c.log.Debug("program released", zap.Stringer("signature", sig))
}

// Handle is one counted reference to a cached program.
type Handle struct {
	cache    *cacheImpl
	entry    *cacheEntry
	released bool
}

// Program returns the shared program. It must not be used after Release.
func (h *Handle) Program() *Program {
	return h.entry.program
}

// Release drops this handle's reference. Calling it more than once has no further effect.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.cache.release(h.entry)
}
