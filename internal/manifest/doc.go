// Package manifest indexes the artifacts of one workspace in SQLite.
//
// Each extracted frame is a row keyed by its sequence number, carrying the
// names of the frame image and, once produced, its text and raster
// derivatives. Stages enumerate work from the manifest in sequence order
// instead of globbing the directory. The extraction parameters are stored
// alongside so frames extracted at another size or rate are never reused.
package manifest
