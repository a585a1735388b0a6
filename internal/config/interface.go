package config

import "context"

// Vars are the values a configuration file may reference.
type Vars struct {
	// Production mirrors the --production flag.
	Production bool
}

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the file at path, applies it over Default and returns the
	// validated model.
	Load(ctx context.Context, path string, vars Vars) (*Model, error)
}
