// Package export converts captures into formats understood by other tools: the Trace Event Format read by
// chrome://tracing and Perfetto, and pprof profiles.
package export
