// Package cache implements the tab-scoped working memory for one study run.
// Keys form a small persisted-state format: sessionToken, sessionOrigin,
// condition, one draft key per stage and one completion marker per stage.
// The cache is only the serialization backend of services.SessionState; it is
// never read as an implicit shared global.
package cache

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/soaringpine/studyflow/internal/services"
)

const (
	keyToken     = "sessionToken"
	keyOrigin    = "sessionOrigin"
	keyCondition = "condition"

	draftPrefix  = "draft:"
	markerPrefix = "done:"
)

// RunCache holds the key-value pairs of a single browser tab's run. It is
// exclusively owned by that tab and never shared across tabs or devices.
type RunCache struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewRunCache() *RunCache {
	return &RunCache{values: map[string]string{}}
}

func (c *RunCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *RunCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *RunCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Clear removes every key of the run. Used on protocol-violation resets.
func (c *RunCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = map[string]string{}
}

// LoadState decodes the cached keys into a typed SessionState.
func (c *RunCache) LoadState() (*services.SessionState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := services.NewSessionState()
	st.Token = c.values[keyToken]
	st.Origin = services.SessionOrigin(c.values[keyOrigin])
	st.Condition = services.Condition(c.values[keyCondition])
	for _, stage := range services.StageOrder {
		if raw, ok := c.values[draftPrefix+string(stage)]; ok {
			var batch services.ResponseBatch
			if err := json.Unmarshal([]byte(raw), &batch); err != nil {
				return nil, fmt.Errorf("decode draft for %s: %w", stage, err)
			}
			st.Drafts[stage] = batch
		}
		if _, ok := c.values[markerPrefix+string(stage)]; ok {
			st.Completed[stage] = true
		}
	}
	return st, nil
}

// SaveState serializes the state back into the cache. The whole run is
// rewritten so removed drafts and markers disappear with it.
func (c *RunCache) SaveState(st *services.SessionState) error {
	if st == nil {
		return fmt.Errorf("nil session state")
	}
	next := map[string]string{}
	if st.Token != "" {
		next[keyToken] = st.Token
		next[keyOrigin] = string(st.Origin)
	}
	if st.Condition != "" {
		next[keyCondition] = string(st.Condition)
	}
	for stage, batch := range st.Drafts {
		raw, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("encode draft for %s: %w", stage, err)
		}
		next[draftPrefix+string(stage)] = string(raw)
	}
	for stage, done := range st.Completed {
		if done {
			next[markerPrefix+string(stage)] = "1"
		}
	}

	c.mu.Lock()
	c.values = next
	c.mu.Unlock()
	return nil
}

// Registry tracks one RunCache per run (browser tab) id.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*RunCache
}

func NewRegistry() *Registry {
	return &Registry{runs: map[string]*RunCache{}}
}

// Run returns the cache for the given run id, creating it on first use.
func (r *Registry) Run(id string) *RunCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.runs[id]
	if !ok {
		c = NewRunCache()
		r.runs[id] = c
	}
	return c
}

// Drop discards a run's cache entirely.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	delete(r.runs, id)
	r.mu.Unlock()
}
