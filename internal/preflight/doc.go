// Package preflight provides readiness checks for the directories, external
// binaries and model service framediff depends on.
//
// The CLI "framediff check" command runs RunAll and CheckSystemDeps and
// renders each Result as a status line. Model checks make a single attempt
// with a short timeout so a bad key is reported in seconds rather than after
// the full retry schedule.
package preflight
