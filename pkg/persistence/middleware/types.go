package middleware

import "github.com/aretw0/arbor/pkg/ports"

// Middleware allows wrapping an EntryStore to add behavior at the byte level.
type Middleware func(ports.EntryStore) ports.EntryStore

// CacheMiddleware allows wrapping a ResultCache to add behavior on decoded results.
type CacheMiddleware func(ports.ResultCache) ports.ResultCache

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.EntryStore, mws ...Middleware) ports.EntryStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
