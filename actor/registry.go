package actor

import "sync"

// Registry 本地 Actor 注册表，支撑按 ID 或名称的查找路由。
// 所有方法并发安全。
type Registry struct {
	mu sync.RWMutex
	// actors ID 到实例的主索引
	actors map[string]IActor
	// names 名称到 ID 的辅助索引，未命名的 Actor 不入此表
	names map[string]string
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{
		actors: make(map[string]IActor),
		names:  make(map[string]string),
	}
}

// Register 登记 Actor；name 非空时同时登记名称索引。
func (r *Registry) Register(id, name string, a IActor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[id] = a
	if name != "" {
		r.names[name] = id
	}
}

// Unregister 注销 Actor 及其名称索引。
func (r *Registry) Unregister(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actors, id)
	if name != "" {
		delete(r.names, name)
	}
}

// Get 按 ID 查找。
func (r *Registry) Get(id string) (IActor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[id]
	return a, ok
}

// GetByName 按名称查找，经名称索引间接命中主索引。
func (r *Registry) GetByName(name string) (IActor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.names[name]
	if !ok {
		return nil, false
	}
	a := r.actors[id]
	return a, a != nil
}

// Snapshot 复制出当前全部注册项，遍历时不持锁。
func (r *Registry) Snapshot() map[string]IActor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]IActor, len(r.actors))
	for id, a := range r.actors {
		out[id] = a
	}
	return out
}
