package analyzer

import "strings"

// FoldSuffix strips common English inflections so that plural and
// progressive forms share a term: "stories" -> "story", "running" -> "run".
// word must already be lowercase.
func FoldSuffix(word string) string {
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case len(word) > 5 && strings.HasSuffix(word, "ing"):
		return undouble(word[:len(word)-3])
	case len(word) > 4 && strings.HasSuffix(word, "ed"):
		return undouble(word[:len(word)-2])
	case len(word) > 3 && hasSibilantPlural(word):
		return word[:len(word)-2]
	case len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:len(word)-1]
	}
	return word
}

func hasSibilantPlural(word string) bool {
	for _, suffix := range []string{"sses", "xes", "ches", "shes", "zes"} {
		if strings.HasSuffix(word, suffix) {
			return true
		}
	}
	return false
}

// undouble drops one letter of a trailing doubled consonant ("runn" -> "run").
func undouble(stem string) string {
	n := len(stem)
	if n < 3 || stem[n-1] != stem[n-2] {
		return stem
	}
	switch stem[n-1] {
	case 'a', 'e', 'i', 'o', 'u', 'l', 's', 'z':
		return stem
	}
	return stem[:n-1]
}
