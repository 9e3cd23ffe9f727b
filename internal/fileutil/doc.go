// Package fileutil holds small filesystem helpers shared by the results store
// and the recompute utility.
package fileutil
