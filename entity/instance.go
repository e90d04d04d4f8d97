package entity

import (
	"github.com/emberhall/fieldvault/ident"
	"github.com/emberhall/fieldvault/threadsafemap"
)

// InstanceManager is the per-type handle registry. It guarantees that two
// lookups of the same identity return the same handle, so every caller
// shares one local cache per identity.
type InstanceManager struct {
	core    *core
	handles threadsafemap.ThreadSafeMap[ident.ID, *Handle]
}

func newInstanceManager(core *core) *InstanceManager {
	return &InstanceManager{core: core}
}

// Obtain returns the registered handle for the identity, creating and
// registering one when none exists. Creation is idempotent under
// concurrency: of two racing callers exactly one handle survives and both
// get it.
//
// Example:
//
//	handle := instances.Obtain(id)
func (m *InstanceManager) Obtain(id ident.ID) *Handle {
	handle, _ := m.handles.GetOrSetFunc(id, func() *Handle {
		return newHandle(m.core, id)
	})

	return handle
}

// Get returns the registered handle without creating one.
func (m *InstanceManager) Get(id ident.ID) (*Handle, bool) {
	return m.handles.Get(id)
}

// Forget drops one identity from the registry. An existing handle stays
// usable but is no longer shared with future lookups.
func (m *InstanceManager) Forget(id ident.ID) {
	m.handles.Delete(id)
}

// Clear empties the registry. With purgeLocal set, every handle handed out
// so far also has its local cache emptied, so stale reads cannot survive a
// type-wide invalidation through old references.
func (m *InstanceManager) Clear(purgeLocal bool) {
	if purgeLocal {
		for _, handle := range m.handles.Copy() {
			handle.purgeLocal()
		}
	}

	m.handles.Clear()
}

// Len reports how many identities are currently registered.
func (m *InstanceManager) Len() int {
	return m.handles.Length()
}
