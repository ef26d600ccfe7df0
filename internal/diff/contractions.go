package diff

import "strings"

// contractions maps a normalized contraction to its possible expansions,
// each a sequence of normalized words. Ambiguous contractions ("it's"
// meaning "it is" or "it has") list multiple expansions.
var contractions = map[string][][]string{
	// subject + will
	"i'll":    {{"i", "will"}},
	"you'll":  {{"you", "will"}},
	"he'll":   {{"he", "will"}},
	"she'll":  {{"she", "will"}},
	"it'll":   {{"it", "will"}},
	"we'll":   {{"we", "will"}},
	"they'll": {{"they", "will"}},
	// subject + am/are
	"i'm":     {{"i", "am"}},
	"you're":  {{"you", "are"}},
	"we're":   {{"we", "are"}},
	"they're": {{"they", "are"}},
	// subject + is/has (ambiguous)
	"it's":    {{"it", "is"}, {"it", "has"}},
	"he's":    {{"he", "is"}, {"he", "has"}},
	"she's":   {{"she", "is"}, {"she", "has"}},
	"that's":  {{"that", "is"}, {"that", "has"}},
	"there's": {{"there", "is"}, {"there", "has"}},
	"here's":  {{"here", "is"}, {"here", "has"}},
	"what's":  {{"what", "is"}, {"what", "has"}},
	"who's":   {{"who", "is"}, {"who", "has"}},
	// subject + have
	"i've":    {{"i", "have"}},
	"you've":  {{"you", "have"}},
	"we've":   {{"we", "have"}},
	"they've": {{"they", "have"}},
	// subject + would/had (ambiguous)
	"i'd":    {{"i", "would"}, {"i", "had"}},
	"you'd":  {{"you", "would"}, {"you", "had"}},
	"he'd":   {{"he", "would"}, {"he", "had"}},
	"she'd":  {{"she", "would"}, {"she", "had"}},
	"we'd":   {{"we", "would"}, {"we", "had"}},
	"they'd": {{"they", "would"}, {"they", "had"}},
	// negations
	"don't":     {{"do", "not"}},
	"doesn't":   {{"does", "not"}},
	"didn't":    {{"did", "not"}},
	"can't":     {{"cannot"}, {"can", "not"}},
	"couldn't":  {{"could", "not"}},
	"won't":     {{"will", "not"}},
	"wouldn't":  {{"would", "not"}},
	"shouldn't": {{"should", "not"}},
	"isn't":     {{"is", "not"}},
	"aren't":    {{"are", "not"}},
	"wasn't":    {{"was", "not"}},
	"weren't":   {{"were", "not"}},
	"hasn't":    {{"has", "not"}},
	"haven't":   {{"have", "not"}},
	"hadn't":    {{"had", "not"}},
	// special
	"let's":  {{"let", "us"}},
	"cannot": {{"can", "not"}},
}

func isContraction(normWord string) bool {
	_, ok := contractions[normWord]
	return ok
}

// expandWord returns the possible expansions of a normalized word. A word
// that is not a known contraction expands only to itself.
func expandWord(normWord string) [][]string {
	if exp, ok := contractions[normWord]; ok {
		return exp
	}
	return [][]string{{normWord}}
}

// allExpansions enumerates every expansion of a word sequence: the
// cartesian product of each word's expansion alternatives, flattened into
// candidate token sequences. Contractions expand to at most two
// alternatives of at most two tokens, so the product stays small.
func allExpansions(normWords []string) [][]string {
	results := [][]string{nil}
	for _, w := range normWords {
		alternatives := expandWord(w)
		next := make([][]string, 0, len(results)*len(alternatives))
		for _, prefix := range results {
			for _, alt := range alternatives {
				combined := make([]string, 0, len(prefix)+len(alt))
				combined = append(combined, prefix...)
				combined = append(combined, alt...)
				next = append(next, combined)
			}
		}
		results = next
	}
	return results
}

// contractionsEquivalent reports whether two normalized word sequences are
// equivalent via contraction expansion: either identical, or some
// expansion of one equals some expansion of the other.
func contractionsEquivalent(normA, normB []string) bool {
	if equalTokens(normA, normB) {
		return true
	}
	seen := make(map[string]struct{})
	for _, eb := range allExpansions(normB) {
		seen[strings.Join(eb, "\x00")] = struct{}{}
	}
	for _, ea := range allExpansions(normA) {
		if _, ok := seen[strings.Join(ea, "\x00")]; ok {
			return true
		}
	}
	return false
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
