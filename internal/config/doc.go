// Package config loads, normalizes, and validates anitag configuration.
//
// Configuration lives in a TOML file (default ~/.config/anitag/config.toml,
// with ./anitag.toml as a project-local fallback). Load starts from Default,
// overlays the file, expands ~ in paths, applies environment overrides, and
// validates the result. CreateSample writes the embedded annotated sample.
package config
