package core

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9_\-]`)
	slugUnderscores  = regexp.MustCompile(`_+`)
	termSlugInvalid  = regexp.MustCompile(`[^a-z0-9]+`)
)

// defaultAttributeKey is used when a column name sanitizes to nothing.
const defaultAttributeKey = "taxonomy"

// SanitizeKey converts a column name into an attribute key: lowercase,
// anything outside [a-z0-9_-] becomes '_', runs of '_' collapse, leading and
// trailing '_' are trimmed, and the result is cut to MaxAttributeKeyLen.
func SanitizeKey(text string) string {
	key := strings.ToLower(text)
	key = slugInvalidChars.ReplaceAllString(key, "_")
	key = slugUnderscores.ReplaceAllString(key, "_")
	key = strings.Trim(key, "_")

	if len(key) > MaxAttributeKeyLen {
		key = strings.TrimRight(key[:MaxAttributeKeyLen], "_")
	}
	return key
}

// UniqueKey returns SanitizeKey(column), suffixed with _2, _3, ... until it
// does not collide with any key in taken. The base is shortened so the
// suffixed key still fits MaxAttributeKeyLen.
func UniqueKey(column string, taken map[string]bool) string {
	base := SanitizeKey(column)
	if base == "" {
		base = defaultAttributeKey
	}

	key := base
	for n := 2; taken[key]; n++ {
		suffix := "_" + strconv.Itoa(n)
		trimmed := base
		if limit := MaxAttributeKeyLen - len(suffix); len(trimmed) > limit {
			trimmed = trimmed[:limit]
		}
		key = trimmed + suffix
	}
	return key
}

// TermSlug derives the URL slug for a term name ("21G Gauge" -> "21g-gauge").
func TermSlug(name string) string {
	slug := termSlugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "term"
	}
	return slug
}
