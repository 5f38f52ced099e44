// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): corpus adapters, the generation model,
// the translator and the index cache. Services depend on these
// interfaces, never on concrete adapters.
package driven
