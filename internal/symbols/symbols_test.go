package symbols

import (
	"reflect"
	"testing"
)

func TestTokenizeLowercasesAndStripsPunctuation(t *testing.T) {
	got := Tokenize("Is a Dog an Animal?")
	want := []string{"is", "dog", "animal"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeKeepsQuestionWords(t *testing.T) {
	got := Tokenize("What is a dog")
	want := []string{"what", "is", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeDedupesPreservingOrder(t *testing.T) {
	got := Tokenize("dog dog cat dog")
	want := []string{"dog", "cat"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeDropsStopWordsAndEmpty(t *testing.T) {
	if got := Tokenize("the of and"); got != nil {
		t.Errorf("Tokenize = %v, want nil", got)
	}
	if got := Tokenize("   "); got != nil {
		t.Errorf("Tokenize = %v, want nil", got)
	}
	if got := Tokenize("!!! ..."); got != nil {
		t.Errorf("Tokenize = %v, want nil", got)
	}
}

func TestFilterTokensKeepsInteriorPunctuation(t *testing.T) {
	got := filterTokens([]string{"Self-Driving", "cars"})
	want := []string{"self-driving", "cars"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterTokens = %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Dog!":  "dog",
		"(cat)": "cat",
		"---":   "",
		"'em":   "em",
	}
	for in, want := range cases {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
