// Package domain contains the core types of the token broker: credential
// records, tenant configuration, the expiry evaluator and the error taxonomy.
// It has no dependencies outside the standard library so every adapter can
// import it freely.
package domain
