package datagen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notesprobe/pkg/notes"
)

func TestRandomString(t *testing.T) {
	t.Parallel()
	s := RandomString(32)
	assert.Len(t, s, 32)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z]+$`), s)
	assert.Empty(t, RandomString(0))
	assert.NotEqual(t, RandomString(32), RandomString(32))
}

func TestRandomEmail(t *testing.T) {
	t.Parallel()
	assert.Regexp(t, `^[a-z]{10}@example\.com$`, RandomEmail(""))
	assert.Regexp(t, `^[a-z]{10}@test\.io$`, RandomEmail("test.io"))
}

func TestFixturesValidate(t *testing.T) {
	t.Parallel()
	for range 20 {
		require.NoError(t, NewUser().Validate())
		require.NoError(t, NewNote("").Validate())
	}
	assert.Equal(t, notes.CategoryWork, NewNote(notes.CategoryWork).Category)
}
