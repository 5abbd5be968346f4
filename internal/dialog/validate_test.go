package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYesNo(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"yes", "Yeah sure", "ok", "go ahead", "please confirm"} {
		assert.True(t, IsYes(s), s)
	}
	for _, s := range []string{"no", "nope", "not now", "don't", "maybe later", "stop"} {
		assert.True(t, IsNo(s), s)
	}
	assert.False(t, IsNo("I know"))
	assert.False(t, IsYes("book it"))
}

func TestAge(t *testing.T) {
	t.Parallel()

	a, err := Age("I am 42 years old")
	require.NoError(t, err)
	assert.Equal(t, 42, a)

	for _, s := range []string{"age is three hundred", "0", "121", ""} {
		_, err := Age(s)
		var inv *Invalid
		assert.ErrorAs(t, err, &inv, s)
	}
	_, err = Age("120")
	assert.NoError(t, err)
}

func TestGender(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"male":       "Male",
		"Female":     "Female",
		"a woman":    "Female",
		"non-binary": "Other",
		"other":      "Other",
	}
	for in, want := range cases {
		got, err := Gender(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := Gender("something")
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	t.Parallel()

	n, err := Name("  Ravi   Kumar ")
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", n)

	_, err = Name("Ravi")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"notes":          "notes.txt",
		"notes dot md":   "notes.md",
		`"report.pdf"`:   "report.pdf",
		"call it 'todo'": "todo.txt",
		"shopping list.": "shopping list.txt",
	}
	for in, want := range cases {
		got, err := Filename(in, ".txt")
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := Filename("  ", ".txt")
	assert.Error(t, err)
}

func TestDirectory(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"in downloads folder": "downloads",
		"save it to document": "documents",
		"desktop":             "desktop",
		"put it in the music": "music",
		"Pictures please":     "pictures",
	}
	for in, want := range cases {
		got, err := Directory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := Directory("somewhere nice")
	assert.Error(t, err)
}
