package textutil

import "testing"

func TestCleanReferenceTextDropsScaffolding(t *testing.T) {
	input := "请抄写下面的句子\n1.\nThe quick brown fox\n\n2.\njumps over the lazy dog\n"
	want := "The quick brown fox\njumps over the lazy dog"
	if got := CleanReferenceText(input); got != want {
		t.Errorf("CleanReferenceText = %q, want %q", got, want)
	}
}

func TestCleanReferenceTextNormalizesLineEndings(t *testing.T) {
	input := "first line\r\nsecond line\r\n"
	want := "first line\nsecond line"
	if got := CleanReferenceText(input); got != want {
		t.Errorf("CleanReferenceText = %q, want %q", got, want)
	}
}

func TestCleanReferenceTextDropsMixedLanguageLines(t *testing.T) {
	// Copybook translations interleave Chinese with the English words;
	// one Han character is enough to mark the line as scaffolding.
	input := "Tom said hello 你好\nA plain line"
	want := "A plain line"
	if got := CleanReferenceText(input); got != want {
		t.Errorf("CleanReferenceText = %q, want %q", got, want)
	}
}

func TestCleanReferenceTextEmpty(t *testing.T) {
	if got := CleanReferenceText("\n\n  \n"); got != "" {
		t.Errorf("CleanReferenceText = %q, want empty", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Week 3: Dictation", "Week 3- Dictation"},
		{"essay/final*draft", "essay-final-draft"},
		{"  what?  ", "what"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Qwen-VL Max", "qwen-vl_max"},
		{"  ", "unknown"},
		{"___", "unknown"},
	}
	for _, tc := range cases {
		if got := SanitizeToken(tc.in); got != tc.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncateForFilename(t *testing.T) {
	if got := TruncateForFilename("abcdef", 4); got != "abcd" {
		t.Errorf("TruncateForFilename = %q", got)
	}
	if got := TruncateForFilename("short", 50); got != "short" {
		t.Errorf("TruncateForFilename = %q", got)
	}
}
