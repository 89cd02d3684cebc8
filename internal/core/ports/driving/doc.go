// Package driving defines the interfaces through which callers (CLI
// harnesses, extraction adapters, schedulers) use the core.
package driving
