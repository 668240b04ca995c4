package notes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationMessage(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"short password", RegisterRequest{Name: "Tester", Email: "a@b.co", Password: "123"}.Validate(), "Password must be between 6 and 30 characters"},
		{"bad email", RegisterRequest{Name: "Tester", Email: "nope", Password: "secret123"}.Validate(), "A valid email address is required"},
		{"short name", RegisterRequest{Name: "Al", Email: "a@b.co", Password: "secret123"}.Validate(), "User name must be between 4 and 30 characters"},
		{"bad category", NoteRequest{Title: "Title", Description: "Desc", Category: "Garden"}.Validate(), "Category must be one of the categories: Home, Work, Personal"},
		{"missing title", NoteRequest{Description: "Desc", Category: CategoryWork}.Validate(), "Title must be between 4 and 100 characters"},
		{"login email", LoginRequest{Email: "", Password: "secret123"}.Validate(), "A valid email address is required"},
		{"plain error", errors.New("boom"), "boom"},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidationMessage(tc.err), tc.name)
	}
}

func TestValidRequestsPass(t *testing.T) {
	t.Parallel()
	assert.NoError(t, RegisterRequest{Name: "Tester", Email: "a@b.co", Password: "secret123"}.Validate())
	assert.NoError(t, NoteRequest{Title: "Title", Description: "Desc", Category: CategoryHome}.Validate())
}

func TestCategoryValid(t *testing.T) {
	t.Parallel()
	for _, c := range Categories {
		assert.True(t, c.Valid())
	}
	assert.False(t, Category("home").Valid())
	assert.False(t, Category("").Valid())
}
