// Package preflight provides readiness checks for the external tools and
// filesystem paths asciireel depends on.
//
// The CLI "asciireel check" command prints every result. The convert command
// runs RunAll before the pipeline starts so a missing binary or an unwritable
// work directory fails fast instead of after probing.
package preflight
