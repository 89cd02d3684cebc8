// Package file provides the TOML-backed tenant configuration store. One
// file per tenant lives under <config-dir>/tenants; a filesystem watcher
// invalidates the in-memory cache when an operator edits a file while a
// long-lived process (health monitor, simulator) is running.
package file
