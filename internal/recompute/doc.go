// Package recompute rescores persisted records from their stored text
// without calling the model service.
//
// Token counts, redundancy and density are rederived and written back in
// place. Fields from retired metrics are dropped; any other unknown fields
// are preserved.
package recompute
