// Package analysis derives views from a paused or loaded capture: per-section statistics, per-thread summaries,
// time-range queries and the call stacks that were active at frame boundaries.
//
// Entries that were still open when capture stopped, either because it was paused or because it filled up, are
// treated as running until the end of the capture. See EffectiveEnd.
package analysis
