// Package stalecache remembers which input the frames in a workspace were
// extracted from.
//
// The cache file holds exactly two lines: the input identity (its cleaned
// absolute path) and its modification stamp (UTC mtime in RFC 3339 with
// nanoseconds, a slash, and the size in bytes). A record is valid only when
// both lines match the input as it is now. Filesystems with coarse mtime
// granularity can miss an edit made within the same tick; content is never
// hashed.
package stalecache
