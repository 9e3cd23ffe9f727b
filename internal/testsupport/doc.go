// Package testsupport provides fixtures shared by package tests: temp-dir
// configs, synthetic frame trees, result records, and an opened run
// ledger.
package testsupport
