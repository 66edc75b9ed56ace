package consul

import (
	"context"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/consul/api"
	"github.com/mwantia/snapcache/backend"
	"github.com/mwantia/snapcache/data"
)

// ConsulBackend provides an object storage backend using HashiCorp Consul KV store.
//
// Architecture:
// - Every object is one KV entry holding a JSON document with mode, timestamps and content
// - Directory entries end in "/" so Keys() with a "/" separator returns direct children
// - All keys live below a configurable prefix (default: "snapcache")
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Best suited for manifests and small snapshot descriptors
type ConsulBackend struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Prefix for all keys in Consul KV (default: "snapcache")
	Prefix string
}

type consulEntry struct {
	Mode       data.FileMode `json:"mode"`
	ModifyTime int64         `json:"modify_time"`
	CreateTime int64         `json:"create_time"`
	Content    []byte        `json:"content,omitempty"`
}

// NewConsulBackend creates a new Consul-backed object storage backend
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	config.Prefix = strings.Trim(config.Prefix, "/")
	if config.Prefix == "" {
		config.Prefix = "snapcache"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend
func (cb *ConsulBackend) Open(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Make sure the root directory entry exists
	pair, _, err := cb.kv.Get(cb.dirKey(""), cb.queryOptions(ctx))
	if err != nil {
		return err
	}
	if pair != nil {
		return nil
	}

	now := time.Now().UnixNano()
	return cb.putEntry(ctx, cb.dirKey(""), &consulEntry{
		Mode:       data.ModeDir | 0755,
		ModifyTime: now,
		CreateTime: now,
	})
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityPersistent,
			backend.CapabilityShared,
		},
		// Consul KV has a default limit of 512KB per value
		// We set it slightly lower to account for metadata overhead
		MaxObjectSize: 500 * 1024,
	}
}

func (cb *ConsulBackend) fileKey(key string) string {
	return cb.config.Prefix + "/" + key
}

func (cb *ConsulBackend) dirKey(key string) string {
	if key == "" {
		return cb.config.Prefix + "/"
	}

	return cb.config.Prefix + "/" + key + "/"
}

func (cb *ConsulBackend) toKey(consulKey string) string {
	key := strings.TrimPrefix(consulKey, cb.config.Prefix+"/")
	return strings.TrimSuffix(key, "/")
}

func (cb *ConsulBackend) queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{}).WithContext(ctx)
}

func (cb *ConsulBackend) writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}

func (cb *ConsulBackend) putEntry(ctx context.Context, consulKey string, entry *consulEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = cb.kv.Put(&api.KVPair{Key: consulKey, Value: value}, cb.writeOptions(ctx))
	return err
}

func (cb *ConsulBackend) getEntry(ctx context.Context, consulKey string) (*consulEntry, error) {
	pair, _, err := cb.kv.Get(consulKey, cb.queryOptions(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, data.ErrNotExist
	}

	var entry consulEntry
	if err := json.Unmarshal(pair.Value, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (entry *consulEntry) toFileStat(key string) *data.FileStat {
	return &data.FileStat{
		Key:        key,
		Mode:       entry.Mode,
		Size:       int64(len(entry.Content)),
		ModifyTime: time.Unix(0, entry.ModifyTime),
		CreateTime: time.Unix(0, entry.CreateTime),
	}
}
