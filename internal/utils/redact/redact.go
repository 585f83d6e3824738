// Package redact masks personal data in conversation text before it is logged.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// Level controls how much conversation text reaches the logs.
type Level string

const (
	// LevelNone replaces the whole text.
	LevelNone Level = "none"
	// LevelHashed replaces personal data with salted hash tokens.
	LevelHashed Level = "hashed"
	// LevelFull logs text as spoken.
	LevelFull Level = "full"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	datePattern  = regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2})\b`)

	// "January 11, 1990", "March 3rd 1948", "Sept. 9 2001"
	spokenDatePattern = regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`)
)

// Redactor masks emails, phone numbers, SSNs and dates in free text.
type Redactor struct {
	level Level
	salt  string
}

// New creates a redactor. Unknown levels behave as LevelHashed.
func New(level Level, salt string) *Redactor {
	switch level {
	case LevelNone, LevelHashed, LevelFull:
	default:
		level = LevelHashed
	}
	return &Redactor{level: level, salt: salt}
}

// Level returns the effective level.
func (r *Redactor) Level() Level {
	return r.level
}

// Text returns s with personal data masked according to the level.
func (r *Redactor) Text(s string) string {
	if s == "" {
		return ""
	}
	switch r.level {
	case LevelFull:
		return s
	case LevelNone:
		return "[REDACTED]"
	}

	// SSNs and dates first: the phone pattern would otherwise eat their digits.
	out := ssnPattern.ReplaceAllString(s, "[SSN:REDACTED]")
	dateToken := func(m string) string {
		return "[DATE:" + r.hash(m) + "]"
	}
	out = datePattern.ReplaceAllStringFunc(out, dateToken)
	out = spokenDatePattern.ReplaceAllStringFunc(out, dateToken)
	out = emailPattern.ReplaceAllStringFunc(out, func(m string) string {
		return "[EMAIL:" + r.hash(m) + "]"
	})
	out = phonePattern.ReplaceAllStringFunc(out, func(m string) string {
		return "[PHONE:" + r.hash(m) + "]"
	})
	return out
}

func (r *Redactor) hash(data string) string {
	sum := sha256.Sum256([]byte(data + r.salt))
	return hex.EncodeToString(sum[:])[:8]
}
