package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/fury/internal/models"
)

const sampleArchive = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3 ADD_DATE="1700000000">Dev</H3>
    <DL><p>
        <DT><A HREF="https://github.com/golang/go" ADD_DATE="1700000100">The Go Programming Language</A>
        <DD>Go source repository
        <DT><H3>Docs</H3>
        <DL><p>
            <DT><A HREF="https://pkg.go.dev/">pkg.go.dev</A>
        </DL><p>
    </DL><p>
    <DT><A HREF="https://news.ycombinator.com/">Hacker News</A>
</DL><p>
`

func TestParse(t *testing.T) {
	bookmarks, err := Parse(sampleArchive)
	require.NoError(t, err)
	require.Len(t, bookmarks, 3)

	assert.Equal(t, "https://github.com/golang/go", bookmarks[0].URL)
	assert.Equal(t, "The Go Programming Language", bookmarks[0].Title)
	assert.Equal(t, "Go source repository", bookmarks[0].Description)
	assert.Equal(t, "Dev", bookmarks[0].SourceFolder)
	require.NotNil(t, bookmarks[0].AddedAt)
	assert.Equal(t, time.Unix(1700000100, 0).UTC(), *bookmarks[0].AddedAt)

	assert.Equal(t, "https://pkg.go.dev/", bookmarks[1].URL)
	assert.Equal(t, "Dev / Docs", bookmarks[1].SourceFolder)

	assert.Equal(t, "https://news.ycombinator.com/", bookmarks[2].URL)
	assert.Empty(t, bookmarks[2].SourceFolder, "root-level bookmark has no folder")
}

func TestParseTitleDefaultsToURL(t *testing.T) {
	archive := `<DL><p><DT><A HREF="https://example.com/page"></A></DL><p>`

	bookmarks, err := Parse(archive)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "https://example.com/page", bookmarks[0].Title)
}

func TestParseDropsEmptyHref(t *testing.T) {
	archive := `<DL><p>
		<DT><A HREF="">no target</A>
		<DT><A>missing href</A>
		<DT><A HREF="https://example.com/">kept</A>
	</DL><p>`

	bookmarks, err := Parse(archive)
	require.NoError(t, err)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "https://example.com/", bookmarks[0].URL)
}

func TestParseNoListIsMalformed(t *testing.T) {
	_, err := Parse("<html><body><p>not a bookmark file</p></body></html>")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMalformedInput)
}

func TestParseBestEffortOnDamage(t *testing.T) {
	// Unclosed tags and stray markup still yield the parseable entries.
	archive := `<DL><p>
		<DT><H3>Folder
		<DL><p>
			<DT><A HREF="https://a.example/">A</A>
			<DT><A HREF="https://b.example/">B
		</DL>`

	bookmarks, err := Parse(archive)
	require.NoError(t, err)
	require.Len(t, bookmarks, 2)
	assert.Equal(t, "Folder", bookmarks[0].SourceFolder)
	assert.Equal(t, "B", bookmarks[1].Title)
}

func TestParseEmptyList(t *testing.T) {
	bookmarks, err := Parse(`<DL><p></DL><p>`)
	require.NoError(t, err)
	assert.Empty(t, bookmarks)
}

func TestParseDescriptionStaysWithItsAnchor(t *testing.T) {
	archive := `<DL><p>
		<DT><A HREF="https://one.example/">One</A>
		<DD>first description
		<DT><A HREF="https://two.example/">Two</A>
	</DL><p>`

	bookmarks, err := Parse(archive)
	require.NoError(t, err)
	require.Len(t, bookmarks, 2)
	assert.Equal(t, "first description", bookmarks[0].Description)
	assert.Empty(t, bookmarks[1].Description)
}
