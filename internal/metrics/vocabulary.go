package metrics

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultClass is the vocabulary key used for unknown or empty class labels.
const DefaultClass = "__default__"

// Vocabulary maps normalized class names to action words. The default set is
// always unioned with the class set. A Vocabulary is never mutated after
// construction.
type Vocabulary struct {
	defaults map[string]struct{}
	classes  map[string]map[string]struct{}
}

var builtinDefault = []string{
	"move", "moves", "moving", "moved",
	"push", "pushes", "pushing", "pushed",
	"pull", "pulls", "pulling", "pulled",
	"lift", "lifts", "lifting", "lifted",
	"open", "opens", "opening", "opened",
	"close", "closes", "closing", "closed",
}

var builtinClasses = map[string][]string{
	"bending something so that it deforms": {
		"bend", "bends", "bending", "bent",
		"deform", "deforms", "deforming", "deformed",
		"curve", "curves", "curving", "curved",
		"warp", "warps", "warping", "warped",
		"flex", "flexes", "flexing", "flexed",
		"twist", "twists", "twisting", "twisted",
	},
	"closing something": {
		"close", "closes", "closing", "closed",
		"shut", "shuts", "shutting",
		"seal", "seals", "sealing", "sealed",
	},
	"folding something": {
		"fold", "folds", "folding", "folded",
		"crease", "creases", "creasing", "creased",
		"flatten", "flattens", "flattening", "flattened",
	},
	"pouring something into something": {
		"pour", "pours", "pouring", "poured",
		"flow", "flows", "flowing", "flowed",
		"fill", "fills", "filling", "filled",
		"stream", "streams", "streaming", "streamed",
	},
	"pouring something into something until it overflows": {
		"pour", "pours", "pouring", "poured",
		"flow", "flows", "flowing", "flowed",
		"fill", "fills", "filling", "filled",
		"overflow", "overflows", "overflowing", "overflowed",
		"spill", "spills", "spilling", "spilled",
		"splash", "splashes", "splashing", "splashed",
	},
	"something falling like a rock": {
		"fall", "falls", "falling", "fell", "fallen",
		"drop", "drops", "dropping", "dropped",
		"plummet", "plummets", "plummeting", "plummeted",
	},
	"throwing something": {
		"throw", "throws", "throwing", "threw", "thrown",
		"toss", "tosses", "tossing", "tossed",
		"fling", "flings", "flinging", "flung",
		"hurl", "hurls", "hurling", "hurled",
	},
	"uncovering something": {
		"uncover", "uncovers", "uncovering", "uncovered",
		"reveal", "reveals", "revealing", "revealed",
		"remove", "removes", "removing", "removed",
		"lift", "lifts", "lifting", "lifted",
		"open", "opens", "opening", "opened",
	},
}

// DefaultVocabulary returns the built-in action vocabulary.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(builtinDefault, builtinClasses)
}

// NewVocabulary builds a vocabulary from a default word list and per-class
// word lists. Class names and words are normalized; inputs are copied.
func NewVocabulary(defaults []string, classes map[string][]string) *Vocabulary {
	v := &Vocabulary{
		defaults: toSet(defaults),
		classes:  make(map[string]map[string]struct{}, len(classes)),
	}
	for class, words := range classes {
		key := NormalizeClass(class)
		if key == DefaultClass {
			for word := range toSet(words) {
				v.defaults[word] = struct{}{}
			}
			continue
		}
		v.classes[key] = toSet(words)
	}
	return v
}

// vocabularyFile is the on-disk override format.
//
//	default = ["move", "moves"]
//	[classes]
//	"closing something" = ["close", "shut"]
type vocabularyFile struct {
	Default []string            `toml:"default"`
	Classes map[string][]string `toml:"classes"`
}

// LoadVocabulary reads a TOML override file and merges it over the built-in
// table. A non-empty default list replaces the built-in default set; listed
// classes replace or add entries.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var file vocabularyFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	defaults := builtinDefault
	if len(file.Default) > 0 {
		defaults = file.Default
	}
	merged := make(map[string][]string, len(builtinClasses)+len(file.Classes))
	for class, words := range builtinClasses {
		merged[class] = words
	}
	for class, words := range file.Classes {
		merged[class] = words
	}
	return NewVocabulary(defaults, merged), nil
}

// NormalizeClass trims and lower-cases a class label for vocabulary lookup.
// Empty labels map to DefaultClass.
func NormalizeClass(class string) string {
	trimmed := strings.TrimSpace(class)
	if trimmed == "" {
		return DefaultClass
	}
	return cases.Lower(language.Und).String(trimmed)
}

// Contains reports whether word counts as an action word for class.
func (v *Vocabulary) Contains(class, word string) bool {
	if v == nil {
		return false
	}
	if _, ok := v.defaults[word]; ok {
		return true
	}
	if set, ok := v.classes[NormalizeClass(class)]; ok {
		_, hit := set[word]
		return hit
	}
	return false
}

// HasClass reports whether class has its own entry beyond the default set.
func (v *Vocabulary) HasClass(class string) bool {
	if v == nil {
		return false
	}
	_, ok := v.classes[NormalizeClass(class)]
	return ok
}

// Words returns the sorted effective word list for class.
func (v *Vocabulary) Words(class string) []string {
	if v == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(v.defaults))
	for word := range v.defaults {
		seen[word] = struct{}{}
	}
	for word := range v.classes[NormalizeClass(class)] {
		seen[word] = struct{}{}
	}
	words := make([]string, 0, len(seen))
	for word := range seen {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

// Classes returns the sorted class names with custom entries.
func (v *Vocabulary) Classes() []string {
	if v == nil {
		return nil
	}
	names := make([]string, 0, len(v.classes))
	for name := range v.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		set[word] = struct{}{}
	}
	return set
}
