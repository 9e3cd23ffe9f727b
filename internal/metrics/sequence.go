package metrics

// SequenceScores bundles the redundancy and density results for one
// description sequence.
type SequenceScores struct {
	Redundancy      float64
	RedundancyPairs []float64
	Density         float64
	DensityPerFrame []float64
}

// Score computes redundancy and density for texts under class.
func Score(vocab *Vocabulary, class string, texts []string) SequenceScores {
	redundancy, pairs := LexicalRedundancy(texts)
	density, perFrame := DensitySequence(vocab, class, texts)
	return SequenceScores{
		Redundancy:      redundancy,
		RedundancyPairs: pairs,
		Density:         density,
		DensityPerFrame: perFrame,
	}
}
