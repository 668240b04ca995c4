// Package datagen produces throwaway accounts and notes for test runs.
package datagen

import (
	"math/rand/v2"
	"strings"

	"github.com/notesprobe/pkg/notes"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultDomain is used by RandomEmail when no domain is given.
const DefaultDomain = "example.com"

// RandomString returns n ASCII letters.
func RandomString(n int) string {
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(letters[rand.IntN(len(letters))])
	}
	return b.String()
}

// RandomEmail returns a lower-case address with a 10 letter local part.
func RandomEmail(domain string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return strings.ToLower(RandomString(10)) + "@" + domain
}

// NewUser returns registration data that passes the API's validation.
func NewUser() notes.RegisterRequest {
	return notes.RegisterRequest{
		Name:     "Test User " + RandomString(5),
		Email:    RandomEmail(""),
		Password: "Pw" + RandomString(10),
	}
}

// NewNote returns a note in category, or a random category when empty.
func NewNote(category notes.Category) notes.NoteRequest {
	if category == "" {
		category = notes.Categories[rand.IntN(len(notes.Categories))]
	}
	return notes.NoteRequest{
		Title:       "Test Note " + RandomString(6),
		Description: "Generated note " + RandomString(20),
		Category:    category,
	}
}
