// Package tokenizer counts subword tokens with a fixed reference BPE
// vocabulary. Counts are comparable across runs; they approximate but do not
// reproduce the model service's billed usage.
package tokenizer
