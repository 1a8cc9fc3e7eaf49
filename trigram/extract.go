// Package trigram implements C6: a fuzzy-search index built over mergemap,
// keyed by sliding trigram windows of an indexed key and ranked by Jaccard
// similarity between query and candidate trigram sets.
package trigram

// Extractor produces the trigram windows for a key of type K. ByteExtractor
// and StringExtractor cover the two modes the format defines; callers
// indexing their own key shape supply their own. K must be comparable, so
// binary keys are represented as Go strings (which hold arbitrary bytes)
// rather than []byte, which the language does not allow as a map key.
type Extractor[K any] func(key K) []string

// ByteExtractor slides a 3-byte window over the raw bytes of a string key,
// for binary data carried in a Go string rather than decoded as text.
func ByteExtractor() Extractor[string] {
	return func(key string) []string {
		if len(key) < 3 {
			return nil
		}
		out := make([]string, 0, len(key)-2)
		for i := 0; i+3 <= len(key); i++ {
			out = append(out, key[i:i+3])
		}
		return out
	}
}

// StringExtractor slides a window of three consecutive Unicode scalar
// values, returning the UTF-8 byte span each window covers.
func StringExtractor() Extractor[string] {
	return func(key string) []string {
		offsets := make([]int, 0, len(key)+1)
		for i := range key {
			offsets = append(offsets, i)
		}
		offsets = append(offsets, len(key))
		runeCount := len(offsets) - 1
		if runeCount < 3 {
			return nil
		}
		out := make([]string, 0, runeCount-2)
		for i := 0; i+3 <= runeCount; i++ {
			out = append(out, key[offsets[i]:offsets[i+3]])
		}
		return out
	}
}

func toSet(trigrams []string) map[string]struct{} {
	set := make(map[string]struct{}, len(trigrams))
	for _, t := range trigrams {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
