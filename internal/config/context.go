package config

import "context"

type contextKey struct{}

// IntoContext attaches the resolved configuration for downstream commands.
func IntoContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the configuration attached by IntoContext. The bool
// is false when no configuration was attached.
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(contextKey{}).(*Config)
	return cfg, ok
}
