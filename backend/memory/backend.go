package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/snapcache/backend"
	"github.com/mwantia/snapcache/data"
	"github.com/tidwall/btree"
)

// MemoryBackend keeps all objects in process memory.
//
// Keys are indexed in a B-tree so the direct children of a directory form a
// contiguous range starting at "<dir>/". Objects are stored by a generated ID.
type MemoryBackend struct {
	mu  sync.RWMutex
	now func() time.Time

	keys    *btree.Map[string, string]
	objects map[string]*memoryObject
}

type memoryObject struct {
	stat    data.FileStat
	content []byte
}

type Option func(*MemoryBackend)

// WithClock replaces time.Now for every timestamp the backend assigns.
func WithClock(now func() time.Time) Option {
	return func(mb *MemoryBackend) {
		mb.now = now
	}
}

func NewMemoryBackend(opts ...Option) *MemoryBackend {
	mb := &MemoryBackend{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(mb)
	}

	mb.reset()
	return mb
}

// Name returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	// No initialization needed - backend is ready to use
	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.reset()
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (mb *MemoryBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
		},
	}
}

// reset drops all objects and recreates the root directory.
func (mb *MemoryBackend) reset() {
	mb.keys = btree.NewMap[string, string](0)
	mb.objects = make(map[string]*memoryObject)

	mb.insert(data.NewFileStat("", data.ModeDir|0755, mb.now()))
}

func (mb *MemoryBackend) insert(stat *data.FileStat) *memoryObject {
	id := uuid.Must(uuid.NewV7()).String()
	obj := &memoryObject{
		stat: *stat,
	}

	mb.keys.Set(stat.Key, id)
	mb.objects[id] = obj
	return obj
}

func (mb *MemoryBackend) lookup(key string) (*memoryObject, bool) {
	id, exists := mb.keys.Get(key)
	if !exists {
		return nil, false
	}

	obj, exists := mb.objects[id]
	return obj, exists
}

func (mb *MemoryBackend) remove(key string) {
	id, exists := mb.keys.Delete(key)
	if exists {
		delete(mb.objects, id)
	}
}

// touch advances the modification time of the parent directory of key.
func (mb *MemoryBackend) touch(key string, now time.Time) {
	if parent, exists := mb.lookup(data.ParentKey(key)); exists {
		parent.stat.ModifyTime = now
	}
}
