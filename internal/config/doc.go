// Package config defines the format-agnostic configuration model of the
// build, its defaults and validation, and the Loader interface implemented
// by the format-specific packages (hcl, yamlconf).
//
// A loader starts from Default and overrides only what the file sets, so
// an empty or missing configuration file yields the stock gulpfile layout.
package config
