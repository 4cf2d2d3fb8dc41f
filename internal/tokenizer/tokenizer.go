// Package tokenizer turns raw text into the token slices the tf-idf engine
// scores. It splits on non-alphanumeric boundaries, optionally lower-cases,
// drops stop-words and applies the Snowball English stemmer.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/config"
)

// Options controls tokenization. The zero value splits only.
type Options struct {
	Lowercase       bool
	RemoveStopWords bool
	Stem            bool
	MinLength       int
	ExtraStopWords  []string
}

// DefaultOptions lower-cases and removes stop-words, without stemming.
func DefaultOptions() Options {
	return Options{
		Lowercase:       true,
		RemoveStopWords: true,
		MinLength:       1,
	}
}

// Tokenize breaks text into an ordered slice of terms. Apostrophes inside a
// word are kept ("don't"), leading and trailing ones are not.
func Tokenize(text string, opts Options) []string {
	if opts.Lowercase {
		text = strings.ToLower(text)
	}
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !isApostrophe(r)
	})
	extra := extraSet(opts.ExtraStopWords)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.ReplaceAll(strings.TrimFunc(word, isApostrophe), "’", "'")
		if word == "" || len([]rune(word)) < opts.MinLength {
			continue
		}
		if opts.RemoveStopWords {
			if IsStopWord(word) {
				continue
			}
			if _, ok := extra[strings.ToLower(word)]; ok {
				continue
			}
		}
		if opts.Stem {
			word = stem(word)
			if word == "" {
				continue
			}
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// stem applies the Snowball English stemmer, falling back to the input word
// when the stemmer rejects it.
func stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", false)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

func extraSet(words []string) map[string]struct{} {
	if len(words) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}

// FromConfig converts the tokenizer section of the service config.
func FromConfig(cfg config.TokenizerConfig) Options {
	return Options{
		Lowercase:       cfg.Lowercase,
		RemoveStopWords: cfg.RemoveStopWords,
		Stem:            cfg.Stem,
		MinLength:       cfg.MinLength,
		ExtraStopWords:  cfg.ExtraStopWords,
	}
}
