// Package hcl provides the HCL implementation of config.Loader. It parses a
// gulpfile.hcl, evaluates its expressions against the build variables and
// translates the blocks into the format-agnostic config.Model.
//
// Expressions may reference `production` (the --production flag) and
// `env.NAME` (process environment), and call a small set of string and
// collection functions (format, upper, lower, join, concat, coalesce).
package hcl
