package redact

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Category identifies the kind of PII a placeholder masks
type Category string

const (
	CategoryEmail Category = "EMAIL"
	CategoryPhone Category = "PHONE"
	CategoryOrder Category = "ORDER"
)

// Mapping maps placeholder tokens back to the original substrings.
// It is request-scoped and must never be persisted.
type Mapping map[string]string

type pass struct {
	category Category
	pattern  *regexp.Regexp
	// accept vets the match text[start:end]; nil accepts every match
	accept func(text string, start, end int) bool
}

var (
	emailRegex = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	// (123) 456-7890, 123-456-7890, 123.456.7890, +1 123 456 7890
	phoneRegex = regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	orderRegex = regexp.MustCompile(`(?i)#?\bORD-?[A-Z0-9]{6,}\b`)
	// digits right after an order prefix belong to the order id, not a phone number
	orderPrefixRegex = regexp.MustCompile(`(?i)#?\bORD-?$`)
)

// passes run in this order against the progressively redacted text
var passes = []pass{
	{category: CategoryEmail, pattern: emailRegex},
	{category: CategoryPhone, pattern: phoneRegex, accept: notAfterOrderPrefix},
	{category: CategoryOrder, pattern: orderRegex, accept: containsDigit},
}

// Redact masks emails, phone numbers and order identifiers with placeholder tokens.
// Placeholders share one counter so an index is never reused across categories.
func Redact(text string) (string, Mapping) {
	redacted, mapping := RedactAll(text)
	return redacted[0], mapping
}

// RedactAll redacts several texts with one mapping and one counter, so a
// placeholder identifies the same value across all of them.
func RedactAll(texts ...string) ([]string, Mapping) {
	mapping := Mapping{}
	counter := 0

	out := make([]string, len(texts))
	for i, text := range texts {
		redacted := text
		for _, p := range passes {
			redacted = p.apply(redacted, func(match string) string {
				counter++
				placeholder := fmt.Sprintf("%s_%d", p.category, counter)
				mapping[placeholder] = match
				return placeholder
			})
		}
		out[i] = redacted
	}

	return out, mapping
}

// Restore replaces every placeholder in text with its original value.
// Placeholders not present in the mapping are left untouched.
func Restore(text string, mapping Mapping) string {
	if len(mapping) == 0 || text == "" {
		return text
	}

	// Longest first so EMAIL_1 does not clobber EMAIL_12
	placeholders := make([]string, 0, len(mapping))
	for placeholder := range mapping {
		placeholders = append(placeholders, placeholder)
	}
	sort.Slice(placeholders, func(i, j int) bool {
		if len(placeholders[i]) != len(placeholders[j]) {
			return len(placeholders[i]) > len(placeholders[j])
		}
		return placeholders[i] < placeholders[j]
	})

	for _, placeholder := range placeholders {
		text = strings.ReplaceAll(text, placeholder, mapping[placeholder])
	}
	return text
}

// RestoreAll restores each string of values in place and returns the slice.
func RestoreAll(values []string, mapping Mapping) []string {
	for i, v := range values {
		values[i] = Restore(v, mapping)
	}
	return values
}

// CategoryOf returns the PII category of a placeholder, or "" if it is not one.
func CategoryOf(placeholder string) Category {
	for _, c := range []Category{CategoryEmail, CategoryPhone, CategoryOrder} {
		if strings.HasPrefix(placeholder, string(c)+"_") {
			return c
		}
	}
	return ""
}

// apply replaces every accepted match, left to right
func (p pass) apply(text string, replace func(match string) string) string {
	locs := p.pattern.FindAllStringIndex(text, -1)
	if locs == nil {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if p.accept != nil && !p.accept(text, start, end) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(replace(text[start:end]))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func notAfterOrderPrefix(text string, start, _ int) bool {
	return !orderPrefixRegex.MatchString(text[:start])
}

func containsDigit(text string, start, end int) bool {
	for _, r := range text[start:end] {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
