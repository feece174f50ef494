package book

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_fairy_tale_writer/generator"
)

func sampleStories() []generator.Story {
	return []generator.Story{
		{Title: "The Golden Goose", Content: "Once upon a time there was a goose.\n\nThe end."},
		{Title: "The Brave Hedgehog", Content: "In a quiet forest lived a hedgehog."},
	}
}

func TestRenderPageLayout(t *testing.T) {
	cases := []struct {
		name    string
		stories []generator.Story
		pages   int
		links   int
	}{
		{"empty batch", nil, 1, 0},
		{"single story", sampleStories()[:1], 2, 1},
		{"two stories", sampleStories(), 3, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewBuilder().Render(tc.stories, &buf))

			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
			count, err := api.PageCount(bytes.NewReader(buf.Bytes()), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.pages, count, "title page plus one page per story, no trailing page")

			annots, err := api.Annotations(bytes.NewReader(buf.Bytes()), nil, nil)
			require.NoError(t, err)
			assert.Len(t, annots[1][model.AnnLink].Map, tc.links, "contents page links once to each story")
		})
	}
}

func TestRenderRejectsBlankStories(t *testing.T) {
	cases := []struct {
		name  string
		story generator.Story
	}{
		{"blank title", generator.Story{Title: "   ", Content: "Once upon a time."}},
		{"blank content", generator.Story{Title: "The Princess", Content: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := NewBuilder().Render([]generator.Story{tc.story}, &buf)
			assert.ErrorIs(t, err, ErrEmptyStory)
			assert.Zero(t, buf.Len(), "nothing may be written on rejection")
		})
	}
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Fairy tales.pdf")
	require.NoError(t, NewBuilder().RenderFile(sampleStories(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	count, err := api.PageCount(f, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRenderFileLeavesNoPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Fairy tales.pdf")
	err := NewBuilder().RenderFile([]generator.Story{{Title: "", Content: "x"}}, path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
