package ctxstore

import "context"

// Key is a typed context key; values are stored and retrieved generically.
type Key string

func (k Key) String() string {
	return string(k)
}

func With[T any](ctx context.Context, key Key, value T) context.Context {
	return context.WithValue(ctx, key, value)
}

func From[T any](ctx context.Context, key Key) (T, bool) {
	value, ok := ctx.Value(key).(T)
	return value, ok
}

// MustFrom is for values a middleware guarantees to have set earlier in the
// chain; a miss is a programming error.
func MustFrom[T any](ctx context.Context, key Key) T {
	value, ok := From[T](ctx, key)
	if !ok {
		panic("ctxstore: missing value for key " + key.String())
	}
	return value
}
