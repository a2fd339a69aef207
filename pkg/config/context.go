package config

import "context"

// ContextKey is the context key for the environment configuration.
var ContextKey = &struct{ string }{"config"}

// FromContext returns the environment configuration from the context.
func FromContext(ctx context.Context) Env {
	if e, ok := ctx.Value(ContextKey).(Env); ok {
		return e
	}
	return Env{}
}

// WithContext returns a new context with the environment configuration.
func WithContext(ctx context.Context, e Env) context.Context {
	return context.WithValue(ctx, ContextKey, e)
}
