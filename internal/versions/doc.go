// Package versions orchestrates the enumeration and materialization pipeline:
// references are listed, filtered against the configured whitelists, resolved
// to their submodule commits, and exported into per-version directories with
// an accompanying YAML manifest.
package versions
