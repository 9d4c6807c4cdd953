/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package asr

import (
	"os"
	"path/filepath"

	"github.com/lingualabs/lingua-hub/internal/logging"
	"go.uber.org/zap"
)

// modelMarker is the file every valid Vosk model directory contains.
const modelMarker = "conf"

// DefaultModelCandidates lists the model directory names searched per
// language, best first (large model before the small fallback).
func DefaultModelCandidates() map[string][]string {
	return map[string][]string{
		"en": {"vosk-model-en-us-0.22", "vosk-model-small-en-us-0.15"},
		"es": {"vosk-model-es-0.42", "vosk-model-small-es-0.42"},
		"hi": {"vosk-model-hi-0.22", "vosk-model-small-hi-0.22"},
	}
}

// ResolveModelPath checks whether base resolves to a valid model directory.
// Mis-extracted archives often nest the model one level deep, so the
// same-named child and finally any child directory are also checked.
func ResolveModelPath(base string) (string, bool) {
	if hasMarker(base) {
		return base, true
	}

	nested := filepath.Join(base, filepath.Base(base))
	if hasMarker(nested) {
		return nested, true
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(base, entry.Name())
		if hasMarker(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func hasMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, modelMarker))
	return err == nil && info != nil
}

// DiscoverModels resolves one model directory per requested language. A
// language with no resolvable model is skipped, not fatal; callers decide
// what to do when nothing loads.
func DiscoverModels(root string, languages []string, candidates map[string][]string) map[string]string {
	resolved := make(map[string]string)

	for _, lang := range languages {
		found := false
		for _, base := range candidates[lang] {
			path, ok := ResolveModelPath(filepath.Join(root, base))
			if ok {
				resolved[lang] = path
				logging.LogRecognizer(lang, "model_found", zap.String("path", path))
				found = true
				break
			}
		}
		if !found {
			logging.LogWarn("No valid model found for language",
				zap.String("language", lang),
				zap.Strings("checked", candidates[lang]))
		}
	}

	return resolved
}
