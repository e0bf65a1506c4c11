// Package workspace owns the per-input working directory a conversion run
// stages its artifacts in.
//
// The directory name is derived from the input identity so an interrupted run
// can be resumed against the same artifacts. A run holds a non-blocking file
// lock on "<dir>.lock" for its lifetime; a second run against the same input
// fails fast with services.ErrBusy. CleanStale sweeps directories abandoned
// by runs that were killed before their own cleanup ran.
//
// Remove unlinks the lock file after releasing it. A run that opened the old
// lock file just before the unlink can still lock that orphaned inode while a
// newer run locks a fresh file at the same path, and both proceed. Running
// two conversions of the same input at once is unsupported; the lock turns
// the common case into ErrBusy and does not close that window.
package workspace
