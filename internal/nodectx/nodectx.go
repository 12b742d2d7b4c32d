// Package nodectx bundles the collaborators every subsystem needs into a
// single, explicitly-constructed value — spec §9's "no ambient globals;
// tests instantiate independent contexts". Nothing in this repo reaches
// for a package-level variable to find its store, logger, or mempool; it
// is handed a *Context instead.
package nodectx

import (
	"sync"

	"github.com/slimchain/slimchain/internal/cache"
	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/slimlog"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/types"
)

// Context is the full-state storage-node variant's bag of collaborators.
// Miners build the analogous bag around *state.PartialState instead (see
// internal/node), but share this package's Pool/metrics/logger plumbing.
type Context struct {
	Nodes    state.CodeStore
	Full     *state.FullState
	Temp     *state.TempState
	Pool     *pipeline.Pool
	Metrics  *cache.Metrics
	Log      slimlog.Logger

	mu   sync.RWMutex
	head struct {
		height uint64
		hash   types.Hash
		root   types.Hash
	}
}

// New constructs a Context around already-opened collaborators; it never
// reaches out to global state to find them.
func New(full *state.FullState, temp *state.TempState, pool *pipeline.Pool, metrics *cache.Metrics, log slimlog.Logger) *Context {
	return &Context{Full: full, Temp: temp, Pool: pool, Metrics: metrics, Log: log}
}

// SetHead records the current head pointer under the context's write lock;
// Head takes the read lock, so readers never see a half-updated head.
func (c *Context) SetHead(height uint64, hash, root types.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head.height = height
	c.head.hash = hash
	c.head.root = root
}

// Head returns the current head pointer.
func (c *Context) Head() (height uint64, hash, root types.Hash) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head.height, c.head.hash, c.head.root
}
