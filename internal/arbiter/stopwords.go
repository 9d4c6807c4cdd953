/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package arbiter

// DefaultStopWords returns the curated per-language function-word sets used
// for the linguistic-verification bonus.
func DefaultStopWords() map[string]map[string]struct{} {
	return map[string]map[string]struct{}{
		"en": wordSet("the", "is", "to", "and", "a", "of", "in", "it", "you", "that"),
		"es": wordSet("el", "la", "de", "que", "y", "en", "un", "una", "es", "por"),
		"hi": wordSet("है", "में", "से", "का", "की", "और", "एक", "हैं", "को", "पर"),
	}
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
