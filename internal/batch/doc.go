// Package batch drives a per-item stage over a list in fixed-size chunks.
//
// Progress is reported once per chunk with the cumulative number of items
// handled, so a run of N items in chunks of k produces ceil(N/k) callbacks
// ending at N. Item failures are counted and collected but never abort the
// run; only context cancellation stops scheduling further chunks.
package batch
