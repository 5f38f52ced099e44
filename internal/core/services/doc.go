// Package services implements the driving port interfaces.
// Services contain the retrieval pipeline logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no external dependencies beyond the
// rate limiter used for summarisation.
package services
