package archive

import (
	stdzip "archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Sunset", "sunset.jpg"},
		{"Sunset Beach 2024", "sunset_beach_2024.jpg"},
		{"Été à Paris", "ete_a_paris.jpg"},
		{"a/b\\c", "a_b_c.jpg"},
		{"photo.jpg", "photo_jpg.jpg"},
		{"", ".jpg"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, EntryName(tt.input), "EntryName(%q)", tt.input)
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("Suffix")
	require.NoError(t, err)
	assert.Equal(t, Suffix, p)

	p, err = ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Overwrite, p)

	_, err = ParseDuplicatePolicy("reject")
	assert.Error(t, err)
}

func TestFinalizeOpensWithStandardReader(t *testing.T) {
	b := NewBuilder()
	_, err := b.Add("one.jpg", []byte("first image"))
	require.NoError(t, err)
	_, err = b.Add("two.jpg", bytes.Repeat([]byte{0xff, 0xd8}, 4096))
	require.NoError(t, err)

	var calls [][2]int
	data, err := b.Finalize(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)

	zr, err := stdzip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	contents := map[string][]byte{}
	for _, f := range zr.File {
		assert.Equal(t, stdzip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = body
	}
	assert.Equal(t, []byte("first image"), contents["one.jpg"])
	assert.Len(t, contents["two.jpg"], 8192)
}

func TestOverwriteKeepsLastData(t *testing.T) {
	b := NewBuilder()
	b.Add("a.jpg", []byte("old"))
	b.Add("b.jpg", []byte("b"))
	name, err := b.Add("a.jpg", []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", name)
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, b.Names())

	data, err := b.Finalize(nil)
	require.NoError(t, err)

	zr, err := stdzip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "new", string(body))
}

func TestSuffixKeepsBoth(t *testing.T) {
	b := NewBuilder(WithDuplicatePolicy(Suffix))
	for i := 0; i < 3; i++ {
		b.Add("a.jpg", []byte{byte(i)})
	}
	assert.Equal(t, []string{"a.jpg", "a-2.jpg", "a-3.jpg"}, b.Names())

	data, err := b.Finalize(nil)
	require.NoError(t, err)
	names, err := List(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "a-2.jpg", "a-3.jpg"}, names)
}

func TestAddEmptyName(t *testing.T) {
	b := NewBuilder()
	_, err := b.Add("", []byte("x"))
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestListInvalid(t *testing.T) {
	_, err := List([]byte("not a zip"))
	assert.Error(t, err)
}
