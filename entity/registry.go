package entity

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/fvlog"
	"github.com/emberhall/fieldvault/sharedcache"
	"github.com/emberhall/fieldvault/threadsafemap"
)

// Registry is the named collection of entity managers sharing one pair of
// store clients. It is the explicit lifecycle owner: build it at startup,
// register every type, close it once at shutdown.
type Registry struct {
	shared    sharedcache.Client
	store     docstore.Store
	log       fvlog.Logger
	managers  threadsafemap.ThreadSafeMap[string, *Manager]
	closeOnce sync.Once
}

// NewRegistry builds an empty registry around the process-wide clients.
func NewRegistry(
	shared sharedcache.Client,
	store docstore.Store,
	log fvlog.Logger,
) *Registry {
	if log == nil {
		log = fvlog.New(nil)
	}

	return &Registry{
		shared: shared,
		store:  store,
		log:    log,
	}
}

// Register adds a manager under its collection name. Registering the same
// collection twice is a wiring bug and is rejected.
func (r *Registry) Register(manager *Manager) fverrors.Error {
	if _, existed := r.managers.GetOrSet(manager.Collection(), manager); existed {
		return fverrors.FromError(
			http.StatusInternalServerError,
			ErrDuplicateKey,
			"register manager for "+manager.Collection(),
		)
	}

	return nil
}

// Manager returns a registered manager by collection name.
func (r *Registry) Manager(collection string) (*Manager, bool) {
	return r.managers.Get(collection)
}

// Collections returns the registered collection names.
func (r *Registry) Collections() []string {
	return r.managers.Keys()
}

// FlushAll invalidates every registered type concurrently and returns the
// first failure, after all flushes finished.
//
// Example:
//
//	err := registry.FlushAll(ctx)
func (r *Registry) FlushAll(ctx context.Context) fverrors.Error {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, manager := range r.managers.Copy() {
		group.Go(func() error {
			if err := manager.Flush(groupCtx); err != nil {
				return err
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return asFvError(err, "flush all entity types")
	}

	return nil
}

// Close releases the shared clients exactly once. Safe to call from
// multiple shutdown paths.
func (r *Registry) Close(ctx context.Context) fverrors.Error {
	var result fverrors.Error

	r.closeOnce.Do(func() {
		if err := r.shared.Close(); err != nil {
			result = err.Wrap("close registry")

			return
		}

		if err := r.store.Close(ctx); err != nil {
			result = err.Wrap("close registry")
		}
	})

	return result
}
