package metrics

import (
	"regexp"
	"strings"
)

var wordSplitPattern = regexp.MustCompile(`[^a-z0-9]+`)

// WordSet returns the unique lowercase alphanumeric tokens in text.
func WordSet(text string) map[string]struct{} {
	raw := wordSplitPattern.Split(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(raw))
	for _, token := range raw {
		if token == "" {
			continue
		}
		set[token] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b| over the word sets of two texts.
// Two texts with no tokens score 0.
func Jaccard(a, b string) float64 {
	return jaccardSets(WordSet(a), WordSet(b))
}

func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for token := range small {
		if _, ok := large[token]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// LexicalRedundancy scores each adjacent pair of texts and returns the mean
// along with the per-pair scores. Sequences with fewer than two texts
// return 0 and an empty slice.
func LexicalRedundancy(texts []string) (float64, []float64) {
	if len(texts) < 2 {
		return 0, []float64{}
	}
	sets := make([]map[string]struct{}, len(texts))
	for i, text := range texts {
		sets[i] = WordSet(text)
	}
	scores := make([]float64, 0, len(texts)-1)
	for i := 1; i < len(sets); i++ {
		scores = append(scores, jaccardSets(sets[i-1], sets[i]))
	}
	return mean(scores), scores
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
