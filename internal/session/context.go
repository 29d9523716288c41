package session

import "context"

type storeKey struct{}

// NewContext returns a context carrying store.
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// FromContext returns the Store attached by NewContext. It panics when there
// is none: that is a wiring bug, not a runtime condition.
func FromContext(ctx context.Context) *Store {
	store, ok := ctx.Value(storeKey{}).(*Store)
	if !ok || store == nil {
		panic("session: FromContext called without a session.Store in the context")
	}
	return store
}
