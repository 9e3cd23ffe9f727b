package metrics

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "The cube moves left.", "the CUBE moves left", 1},
		{"disjoint", "red ball", "blue cube", 0},
		{"both empty", "", "!!!", 0},
		{"one empty", "red ball", "", 0},
		{"partial", "a red cube", "a blue cube", 2.0 / 4.0},
		{"duplicates collapse", "cube cube cube", "cube", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Fatalf("Jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Jaccard(tt.b, tt.a); !almostEqual(got, tt.want) {
				t.Fatalf("Jaccard not symmetric for %q, %q: %v", tt.a, tt.b, got)
			}
		})
	}
}

func TestLexicalRedundancyShortSequences(t *testing.T) {
	for _, texts := range [][]string{nil, {}, {"only one frame"}} {
		avg, pairs := LexicalRedundancy(texts)
		if avg != 0 {
			t.Fatalf("expected 0 average for %v, got %v", texts, avg)
		}
		if pairs == nil || len(pairs) != 0 {
			t.Fatalf("expected empty non-nil pairs for %v, got %#v", texts, pairs)
		}
	}
}

func TestLexicalRedundancySequence(t *testing.T) {
	texts := []string{
		"a hand holds a cup",
		"a hand holds a cup",
		"the cup tips over",
	}
	avg, pairs := LexicalRedundancy(texts)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pair scores, got %d", len(pairs))
	}
	if !almostEqual(pairs[0], 1) {
		t.Fatalf("expected identical pair to score 1, got %v", pairs[0])
	}
	// {a,hand,holds,cup} vs {the,cup,tips,over}: 1 shared of 7.
	if !almostEqual(pairs[1], 1.0/7.0) {
		t.Fatalf("unexpected second pair score %v", pairs[1])
	}
	if !almostEqual(avg, (1+1.0/7.0)/2) {
		t.Fatalf("unexpected average %v", avg)
	}
}

func TestLexicalRedundancyTwoThirds(t *testing.T) {
	avg, pairs := LexicalRedundancy([]string{"red cube left", "red cube right", "red cube right"})
	// pair scores 0.5 and 1.0
	if len(pairs) != 2 || !almostEqual(pairs[0], 0.5) || !almostEqual(pairs[1], 1) {
		t.Fatalf("unexpected pairs %v", pairs)
	}
	if math.Abs(avg-0.75) > 1e-9 {
		t.Fatalf("unexpected average %v", avg)
	}
	avg, _ = LexicalRedundancy([]string{"cube moves", "cube moves left"})
	if math.Abs(avg-0.667) > 0.001 {
		t.Fatalf("expected ~0.667, got %v", avg)
	}
}

func TestInformationDensity(t *testing.T) {
	vocab := DefaultVocabulary()
	tests := []struct {
		name  string
		class string
		text  string
		want  float64
	}{
		{"empty", "folding something", "", 0},
		{"whitespace only", "folding something", "   \n", 0},
		{"folding class", "folding something", "she folds the paper and creases it", 2.0 / 7.0},
		{"class normalized", "  Folding Something ", "she folds the paper and creases it", 2.0 / 7.0},
		{"default always counts", "folding something", "he pushes it", 1.0 / 3.0},
		{"unknown class uses default", "juggling", "she folds and moves it", 1.0 / 5.0},
		{"punctuation not stripped", "folding something", "folds.", 0},
		{"case folded", "throwing something", "THREW", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InformationDensity(vocab, tt.class, tt.text)
			if !almostEqual(got, tt.want) {
				t.Fatalf("InformationDensity = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Fatalf("density out of range: %v", got)
			}
		})
	}
}

func TestInformationDensityCustomNeverBelowDefault(t *testing.T) {
	vocab := DefaultVocabulary()
	texts := []string{
		"the lid closes and she shuts the box",
		"water pours and spills over the rim",
		"he lifts the cloth to reveal a cup",
		"nothing happens here",
	}
	for _, class := range vocab.Classes() {
		for _, text := range texts {
			custom := InformationDensity(vocab, class, text)
			fallback := InformationDensity(vocab, DefaultClass, text)
			if custom < fallback {
				t.Fatalf("class %q scored %v below default %v for %q", class, custom, fallback, text)
			}
		}
	}
}

func TestUnknownClassMatchesDefault(t *testing.T) {
	vocab := DefaultVocabulary()
	text := "the hand pulls the drawer open"
	if got, want := InformationDensity(vocab, "stacking something", text), InformationDensity(vocab, "", text); got != want {
		t.Fatalf("unknown class density %v, default %v", got, want)
	}
}

func TestDensitySequence(t *testing.T) {
	vocab := DefaultVocabulary()
	avg, per := DensitySequence(vocab, "throwing something", nil)
	if avg != 0 || len(per) != 0 {
		t.Fatalf("expected zero for empty sequence, got %v %v", avg, per)
	}
	avg, per = DensitySequence(vocab, "throwing something", []string{"he throws", "a ball"})
	if len(per) != 2 || !almostEqual(per[0], 0.5) || per[1] != 0 {
		t.Fatalf("unexpected per-frame %v", per)
	}
	if !almostEqual(avg, 0.25) {
		t.Fatalf("unexpected average %v", avg)
	}
}

func TestNormalizeClass(t *testing.T) {
	if got := NormalizeClass("   "); got != DefaultClass {
		t.Fatalf("expected default class, got %q", got)
	}
	if got := NormalizeClass(" Closing Something "); got != "closing something" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

func TestLoadVocabularyMergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.toml")
	content := `
[classes]
"Stacking Something" = ["stack", "stacks", "Stacked"]
"closing something" = ["latch"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	if !vocab.Contains("stacking something", "stacked") {
		t.Fatal("expected new class words to be present")
	}
	if vocab.Contains("closing something", "shut") {
		t.Fatal("expected override to replace closing words")
	}
	if !vocab.Contains("closing something", "moves") {
		t.Fatal("expected default words to remain unioned")
	}
	if !vocab.Contains("throwing something", "hurl") {
		t.Fatal("expected untouched built-in classes to survive")
	}
}

func TestLoadVocabularyMissingFile(t *testing.T) {
	if _, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestScore(t *testing.T) {
	scores := Score(DefaultVocabulary(), "folding something", []string{"she folds it", "she folds it"})
	if !almostEqual(scores.Redundancy, 1) || len(scores.RedundancyPairs) != 1 {
		t.Fatalf("unexpected redundancy %+v", scores)
	}
	if !almostEqual(scores.Density, 1.0/3.0) || len(scores.DensityPerFrame) != 2 {
		t.Fatalf("unexpected density %+v", scores)
	}
}
