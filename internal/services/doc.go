// Package services holds the error taxonomy and context plumbing shared by the
// pipeline stages and the external tool adapters.
//
// Stage code wraps failures with Wrap so callers can classify them with
// errors.Is against the exported markers, and annotates contexts with the run
// identifier and stage name so log lines can be correlated.
package services
