package book

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"

	"auto_fairy_tale_writer/generator"
)

// ErrEmptyStory is returned when a story with blank content or title is
// handed to the builder.
var ErrEmptyStory = errors.New("story content and title must be non-empty")

const (
	defaultTitle  = "Fairy tales"
	defaultAuthor = "ChatGPT"

	fontFamily  = "Helvetica"
	pageMargin  = 20.0
	titleSize   = 42.0
	tocSize     = 16.0
	headingSize = 20.0
	bodySize    = 14.0
)

// lineHeight converts a font size in points to a write height in mm.
func lineHeight(size float64) float64 { return size * 0.5 }

// Builder assembles stories into a PDF book: a title page, a linked table
// of contents, and one chapter per story.
type Builder struct {
	Title  string
	Author string
}

// NewBuilder returns a Builder with the default title and author.
func NewBuilder() *Builder {
	return &Builder{Title: defaultTitle, Author: defaultAuthor}
}

// Render writes the assembled book to w. Every story is checked before any
// output is produced; a blank content or title rejects the whole batch.
// An empty batch yields just the title page.
func (b *Builder) Render(stories []generator.Story, w io.Writer) error {
	for i, story := range stories {
		if strings.TrimSpace(story.Content) == "" || strings.TrimSpace(story.Title) == "" {
			return fmt.Errorf("story %d: %w", i+1, ErrEmptyStory)
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(b.Title, true)
	pdf.SetAuthor(b.Author, true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Title page. The contents list is written back onto it once the
	// chapter pages are known.
	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", titleSize)
	pdf.Write(lineHeight(titleSize), tr(fmt.Sprintf("%s by %s\n\n", b.Title, b.Author)))
	tocPage := pdf.PageNo()
	tocY := pdf.GetY()

	type tocEntry struct {
		title string
		page  int
		link  int
	}
	entries := make([]tocEntry, 0, len(stories))

	for _, story := range stories {
		pdf.AddPage()
		link := pdf.AddLink()
		pdf.SetLink(link, 0, pdf.PageNo())
		entries = append(entries, tocEntry{title: story.Title, page: pdf.PageNo(), link: link})

		pdf.Bookmark(story.Title, 0, -1)
		pdf.SetFont(fontFamily, "B", headingSize)
		pdf.Write(lineHeight(headingSize), tr(story.Title)+"\n")
		pdf.SetFont(fontFamily, "", bodySize)
		pdf.Write(lineHeight(bodySize), "\n"+tr(story.Content)+"\n")
	}

	// Back-fill the table of contents. Page breaks are off here so an
	// overlong list cannot push chapters around.
	pdf.SetPage(tocPage)
	pdf.SetY(tocY)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetFont(fontFamily, "", tocSize)
	for i, e := range entries {
		pdf.WriteLinkID(lineHeight(tocSize), tr(fmt.Sprintf("%d. %s (p. %d)\n", i+1, e.title, e.page)), e.link)
	}
	pdf.SetPage(pdf.PageCount())

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// RenderFile renders the book into memory and writes path in one go, so a
// failed render leaves no partial file behind.
func (b *Builder) RenderFile(stories []generator.Story, path string) error {
	var buf bytes.Buffer
	if err := b.Render(stories, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("stories", len(stories)).Msg("book saved")
	return nil
}
