// Package domain contains the core business entities for the retrieval
// pipeline: documents, chunks, summaries, indexes and the events and
// errors that flow between services. It has no dependencies outside the
// standard library.
package domain
