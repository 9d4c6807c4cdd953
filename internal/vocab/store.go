/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

package vocab

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lingualabs/lingua-hub/internal/logging"
)

// Unknown-word statuses and validated-word categories.
const (
	StatusNew       = "new"
	StatusValidated = "validated"

	CategoryAutoLearned = "auto_learned"
	CategoryManual      = "manual"
)

// Transcript is one append-only row of the transcript log.
type Transcript struct {
	ID        int64
	Timestamp time.Time
	Language  string
	Text      string
	AudioFile string // empty when the segment came from a stop-flush
}

// UnknownWord is a low-confidence or out-of-vocabulary word captured for
// later review. At most one record exists per (word, language) pair.
type UnknownWord struct {
	ID          int64
	Word        string
	Context     string
	Language    string
	Confidence  float64
	Status      string
	Translation string
	Timestamp   time.Time
}

// ValidatedWord is a vocabulary entry used for correction and frequency
// tracking. The frequency counter only ever grows.
type ValidatedWord struct {
	ID             int64
	Word           string
	Category       string
	FrequencyCount int64
}

// ListOptions filters transcript queries.
type ListOptions struct {
	Language string // empty = all languages
	Limit    int    // <= 0 = no limit
}

// Store handles all database operations for transcripts and vocabulary.
// Writes are serialized: the transcription loop and the asynchronous
// validation collaborator share the same store.
type Store struct {
	db        *Database
	corrector *Corrector
	mu        sync.Mutex
	clock     func() time.Time
}

// NewStore creates a vocabulary store. The corrector runs in-line on every
// transcript before it is persisted; nil disables correction.
func NewStore(db *Database, corrector *Corrector) *Store {
	return &Store{
		db:        db,
		corrector: corrector,
		clock:     time.Now,
	}
}

// RecordTranscript corrects the text against the validated vocabulary,
// bumps frequency counters for every validated word observed in the
// corrected text, and appends the transcript row, all in one transaction.
// A persistence failure leaves no partial frequency updates behind. The
// corrected text is returned.
func (s *Store) RecordTranscript(text, language, audioFile string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vocabulary, err := s.vocabularyWords()
	if err != nil {
		return "", fmt.Errorf("failed to load vocabulary: %w", err)
	}

	corrected := text
	if s.corrector != nil {
		corrected = s.corrector.Correct(text, vocabulary)
	}

	tx, err := s.db.DB().Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for word, count := range countOccurrences(corrected, vocabulary) {
		if _, err := tx.Exec(
			"UPDATE validated_words SET frequency_count = frequency_count + ? WHERE word = ?",
			count, word,
		); err != nil {
			return "", fmt.Errorf("failed to bump frequency for %q: %w", word, err)
		}
	}

	var audio interface{}
	if audioFile != "" {
		audio = audioFile
	}

	if _, err := tx.Exec(
		"INSERT INTO transcripts (timestamp, language, text, audio_file) VALUES (?, ?, ?, ?)",
		s.clock().UTC(), language, corrected, audio,
	); err != nil {
		return "", fmt.Errorf("failed to insert transcript: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transcript: %w", err)
	}

	logging.LogTranscript(language, corrected)
	return corrected, nil
}

// RecordUnknownWord captures a flagged word. Inserting an existing
// (word, language) pair is a silent no-op.
func (s *Store) RecordUnknownWord(word, context, language string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.DB().Exec(
		`INSERT OR IGNORE INTO unknown_words
			(word, context, detected_lang, confidence, status, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		word, context, language, confidence, StatusNew, s.clock().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert unknown word: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		logging.LogVocabulary("flag_unknown", word)
	}
	return nil
}

// Promote moves an unknown word into the validated vocabulary with
// category auto_learned and marks its source records validated. It is
// idempotent: re-promoting an already-validated word reports false with
// no error. A non-empty gloss is stored as the unknown word's translation.
func (s *Store) Promote(word, gloss string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.DB().Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.Exec(
		"INSERT OR IGNORE INTO validated_words (word, category) VALUES (?, ?)",
		word, CategoryAutoLearned,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert validated word: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE unknown_words
		 SET status = ?, translation = COALESCE(NULLIF(?, ''), translation)
		 WHERE word = ?`,
		StatusValidated, gloss, word,
	); err != nil {
		return false, fmt.Errorf("failed to update unknown word status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit promotion: %w", err)
	}

	if inserted > 0 {
		logging.LogVocabulary("promote", word)
	}
	return inserted > 0, nil
}

// AddManualWord adds a word to the validated vocabulary with category
// manual. Adding an already-validated word succeeds as a no-op.
func (s *Store) AddManualWord(word string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.DB().Exec(
		"INSERT OR IGNORE INTO validated_words (word, category) VALUES (?, ?)",
		word, CategoryManual,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert manual word: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if rows > 0 {
		logging.LogVocabulary("manual_add", word)
	}
	return rows > 0, nil
}

// ListTranscripts returns transcripts newest first, optionally filtered by
// language and limited.
func (s *Store) ListTranscripts(options ListOptions) ([]Transcript, error) {
	query := "SELECT id, timestamp, language, text, audio_file FROM transcripts"
	var args []interface{}

	if options.Language != "" {
		query += " WHERE language = ?"
		args = append(args, options.Language)
	}

	query += " ORDER BY id DESC"

	if options.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, options.Limit)
	}

	rows, err := s.db.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []Transcript
	for rows.Next() {
		var t Transcript
		var audio sql.NullString
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Language, &t.Text, &audio); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		t.AudioFile = audio.String
		transcripts = append(transcripts, t)
	}

	return transcripts, rows.Err()
}

// ListUnknownWords returns every unknown-word record, newest first.
func (s *Store) ListUnknownWords() ([]UnknownWord, error) {
	return s.queryUnknownWords(
		`SELECT id, word, context, detected_lang, confidence, status, translation, timestamp
		 FROM unknown_words ORDER BY id DESC`)
}

// PendingUnknownWords returns the records awaiting validation.
func (s *Store) PendingUnknownWords() ([]UnknownWord, error) {
	return s.queryUnknownWords(
		`SELECT id, word, context, detected_lang, confidence, status, translation, timestamp
		 FROM unknown_words WHERE status = 'new' ORDER BY id ASC`)
}

func (s *Store) queryUnknownWords(query string) ([]UnknownWord, error) {
	rows, err := s.db.DB().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unknown words: %w", err)
	}
	defer rows.Close()

	var words []UnknownWord
	for rows.Next() {
		var w UnknownWord
		var context, translation sql.NullString
		if err := rows.Scan(&w.ID, &w.Word, &context, &w.Language, &w.Confidence,
			&w.Status, &translation, &w.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan unknown word: %w", err)
		}
		w.Context = context.String
		w.Translation = translation.String
		words = append(words, w)
	}

	return words, rows.Err()
}

// ListValidatedWords returns the validated vocabulary, most frequent first.
func (s *Store) ListValidatedWords() ([]ValidatedWord, error) {
	rows, err := s.db.DB().Query(
		`SELECT id, word, category, frequency_count
		 FROM validated_words ORDER BY frequency_count DESC, word ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query validated words: %w", err)
	}
	defer rows.Close()

	var words []ValidatedWord
	for rows.Next() {
		var w ValidatedWord
		if err := rows.Scan(&w.ID, &w.Word, &w.Category, &w.FrequencyCount); err != nil {
			return nil, fmt.Errorf("failed to scan validated word: %w", err)
		}
		words = append(words, w)
	}

	return words, rows.Err()
}

// GetValidatedWord looks up one vocabulary entry, nil when absent.
func (s *Store) GetValidatedWord(word string) (*ValidatedWord, error) {
	var w ValidatedWord
	err := s.db.DB().QueryRow(
		"SELECT id, word, category, frequency_count FROM validated_words WHERE word = ?",
		word,
	).Scan(&w.ID, &w.Word, &w.Category, &w.FrequencyCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query validated word: %w", err)
	}
	return &w, nil
}

// vocabularyWords returns the validated words sorted lexicographically,
// the order the corrector's tie-break relies on.
func (s *Store) vocabularyWords() ([]string, error) {
	rows, err := s.db.DB().Query("SELECT word FROM validated_words ORDER BY word ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}

	return words, rows.Err()
}

// countOccurrences counts whole-token, case-insensitive occurrences of
// each vocabulary word in the text, keyed by the word's stored form.
func countOccurrences(text string, vocabulary []string) map[string]int {
	if len(vocabulary) == 0 {
		return nil
	}

	lookup := make(map[string]string, len(vocabulary))
	for _, w := range vocabulary {
		lookup[strings.ToLower(w)] = w
	}

	counts := make(map[string]int)
	for _, token := range strings.Fields(text) {
		if stored, ok := lookup[strings.ToLower(token)]; ok {
			counts[stored]++
		}
	}

	return counts
}
