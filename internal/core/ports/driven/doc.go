// Package driven defines the interfaces the core depends on: credential
// persistence, token exchanges against the authorization server, and tenant
// configuration. Adapters implement these; the core never imports adapters.
package driven
