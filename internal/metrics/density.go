package metrics

import "strings"

// InformationDensity returns the fraction of whitespace-separated lowercase
// tokens in text that are action words for class. Punctuation is not
// stripped, so "folds." does not match "folds". Empty text scores 0.
func InformationDensity(vocab *Vocabulary, class, text string) float64 {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, token := range tokens {
		if vocab.Contains(class, token) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// DensitySequence scores every text in order and returns the mean along with
// the per-text scores. An empty sequence returns 0 and an empty slice.
func DensitySequence(vocab *Vocabulary, class string, texts []string) (float64, []float64) {
	scores := make([]float64, 0, len(texts))
	for _, text := range texts {
		scores = append(scores, InformationDensity(vocab, class, text))
	}
	return mean(scores), scores
}
