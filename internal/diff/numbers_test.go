package diff

import "testing"

func TestParseNumberForms(t *testing.T) {
	cases := []struct {
		word string
		want int
		ok   bool
	}{
		{"3", 3, true},
		{"42", 42, true},
		{"1st", 1, true},
		{"2nd", 2, true},
		{"3rd", 3, true},
		{"10th", 10, true},
		{"one", 1, true},
		{"twelve", 12, true},
		{"twenty", 20, true},
		{"hundred", 100, true},
		{"thousand", 1000, true},
		{"first", 1, true},
		{"second", 2, true},
		{"twentieth", 20, true},
		{"cat", 0, false},
		{"the", 0, false},
		{"", 0, false},
		{"best", 0, false},
	}
	for _, c := range cases {
		got, ok := parseNumber(c.word)
		if ok != c.ok || (ok && got != c.want) {
			t.Fatalf("parseNumber(%q) = %d, %v; want %d, %v", c.word, got, ok, c.want, c.ok)
		}
	}
}

func TestNumbersEquivalent(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"one", "1", true},
		{"1", "one", true},
		{"first", "1st", true},
		{"twelve", "12", true},
		{"one", "2", false},
		{"cat", "1", false},
		{"1", "cat", false},
		{"cat", "dog", false},
	}
	for _, c := range cases {
		if got := numbersEquivalent(c.a, c.b); got != c.want {
			t.Fatalf("numbersEquivalent(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestContractionsEquivalentDirect(t *testing.T) {
	cases := []struct {
		a, b []string
		want bool
	}{
		{[]string{"i'll"}, []string{"i", "will"}, true},
		{[]string{"i", "will"}, []string{"i'll"}, true},
		{[]string{"it's"}, []string{"it", "is"}, true},
		{[]string{"it's"}, []string{"it", "has"}, true},
		{[]string{"can't"}, []string{"cannot"}, true},
		{[]string{"can't"}, []string{"can", "not"}, true},
		{[]string{"ill"}, []string{"i'll"}, false},
		{[]string{"dog"}, []string{"dog"}, true},
		{[]string{"dog"}, []string{"cat"}, false},
	}
	for _, c := range cases {
		if got := contractionsEquivalent(c.a, c.b); got != c.want {
			t.Fatalf("contractionsEquivalent(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestNormalizeKeyStripsEdgesKeepsApostrophe(t *testing.T) {
	cases := [][2]string{
		{"Hello,", "hello"},
		{"\"I'll\"", "i'll"},
		{"--dash--", "dash"},
		{"Don't!", "don't"},
		{"...", ""},
	}
	for _, c := range cases {
		if got := normalizeKey(c[0]); got != c[1] {
			t.Fatalf("normalizeKey(%q) = %q, want %q", c[0], got, c[1])
		}
	}
}

func TestStripDisplayKeepsAllPunctuationToken(t *testing.T) {
	if got := stripDisplay("!!!"); got != "!!!" {
		t.Fatalf("expected all-punctuation token kept, got %q", got)
	}
	if got := stripDisplay("Hello,"); got != "Hello" {
		t.Fatalf("expected %q, got %q", "Hello", got)
	}
}
