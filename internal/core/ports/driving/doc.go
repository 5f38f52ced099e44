// Package driving provides interfaces for primary (inbound) adapters.
// The CLI drives the core exclusively through these interfaces.
package driving
