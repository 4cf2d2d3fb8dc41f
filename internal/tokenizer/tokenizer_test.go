package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts Options
		want []string
	}{
		{
			name: "split only",
			text: "The quick, brown fox!",
			opts: Options{},
			want: []string{"The", "quick", "brown", "fox"},
		},
		{
			name: "lowercase",
			text: "The Quick BROWN fox",
			opts: Options{Lowercase: true},
			want: []string{"the", "quick", "brown", "fox"},
		},
		{
			name: "stop words removed",
			text: "It is a truth universally acknowledged",
			opts: DefaultOptions(),
			want: []string{"truth", "universally", "acknowledged"},
		},
		{
			name: "contractions kept whole",
			text: "I don't know 'Emma' really",
			opts: Options{Lowercase: true},
			want: []string{"i", "don't", "know", "emma", "really"},
		},
		{
			name: "contraction stop word",
			text: "don't panic",
			opts: DefaultOptions(),
			want: []string{"panic"},
		},
		{
			name: "curly apostrophe normalised",
			text: "don’t panic",
			opts: Options{Lowercase: true},
			want: []string{"don't", "panic"},
		},
		{
			name: "digits kept",
			text: "chapter 12 begins",
			opts: Options{Lowercase: true},
			want: []string{"chapter", "12", "begins"},
		},
		{
			name: "min length",
			text: "a bb ccc",
			opts: Options{MinLength: 2},
			want: []string{"bb", "ccc"},
		},
		{
			name: "extra stop words",
			text: "Chapter one of the book",
			opts: Options{Lowercase: true, RemoveStopWords: true, ExtraStopWords: []string{"Chapter"}},
			want: []string{"one", "book"},
		},
		{
			name: "empty",
			text: "  ,;  ",
			opts: DefaultOptions(),
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text, tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenizeStem(t *testing.T) {
	opts := DefaultOptions()
	opts.Stem = true
	got := Tokenize("running runs", opts)
	if len(got) != 2 || got[0] != "run" || got[1] != "run" {
		t.Errorf("stemmed = %q, want [run run]", got)
	}
}

func TestTokenizePreservesOrderAndDuplicates(t *testing.T) {
	got := Tokenize("whale ship whale sea whale", DefaultOptions())
	want := []string{"whale", "ship", "whale", "sea", "whale"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "The", "and", "wouldn't"} {
		if !IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = false", w)
		}
	}
	for _, w := range []string{"whale", "elinor", ""} {
		if IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = true", w)
		}
	}
	if len(StopWords()) != len(stopWords) {
		t.Error("StopWords() should copy the full list")
	}
}
