// Package parser reads Netscape bookmark HTML, the export format shared
// by Chrome, Firefox and Safari. The format is a tree of definition
// lists: <DT><H3> opens a folder, <DT><A> is a bookmark, <DD> carries an
// optional description for the preceding anchor.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ternarybob/fury/internal/models"
)

// FolderSeparator joins the folder stack into the breadcrumb stored on
// each bookmark ("A / B / C").
const FolderSeparator = " / "

// Parse walks a Netscape bookmark archive and returns its bookmarks in
// document order, each carrying the folder path it was found under.
// Parsing is best-effort: damaged entries are dropped, and only an
// archive with no definition list at all fails with ErrMalformedInput.
func Parse(archiveHTML string) ([]models.ParsedBookmark, error) {
	doc, err := html.Parse(strings.NewReader(archiveHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
	}

	if !hasElement(doc, "dl") {
		return nil, fmt.Errorf("%w: no bookmark list found", models.ErrMalformedInput)
	}

	w := &walker{}
	w.walk(doc)
	w.flushPending()

	return w.bookmarks, nil
}

type walker struct {
	folderStack   []string
	pendingFolder string
	pending       *models.ParsedBookmark
	bookmarks     []models.ParsedBookmark
}

func (w *walker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "dl":
			// A list following a header holds that folder's entries; the
			// root list (and any stray list) has no header and pushes
			// nothing. The header's name is armed by the h3 case below.
			pushed := false
			if w.pendingFolder != "" {
				w.folderStack = append(w.folderStack, w.pendingFolder)
				w.pendingFolder = ""
				pushed = true
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				w.walk(c)
			}
			w.flushPending()
			if pushed {
				w.folderStack = w.folderStack[:len(w.folderStack)-1]
			}
			return
		case "h3":
			w.flushPending()
			name := strings.TrimSpace(textContent(n))
			if name == "" {
				name = "Untitled"
			}
			w.pendingFolder = name
			return
		case "a":
			w.flushPending()
			w.pending = w.anchorBookmark(n)
			return
		case "dd":
			if w.pending != nil && w.pending.Description == "" {
				w.pending.Description = collapseSpace(textContent(n))
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

// flushPending emits the bookmark waiting for a possible <DD> sibling.
func (w *walker) flushPending() {
	if w.pending != nil {
		w.bookmarks = append(w.bookmarks, *w.pending)
		w.pending = nil
	}
}

// anchorBookmark builds a bookmark from an <A> element, or nil when the
// href is empty. Title falls back to the URL.
func (w *walker) anchorBookmark(n *html.Node) *models.ParsedBookmark {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" {
		return nil
	}

	title := collapseSpace(textContent(n))
	if title == "" {
		title = href
	}

	b := &models.ParsedBookmark{
		URL:   href,
		Title: title,
	}

	if len(w.folderStack) > 0 {
		b.SourceFolder = strings.Join(w.folderStack, FolderSeparator)
	}

	if raw := attr(n, "add_date"); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
			t := time.Unix(secs, 0).UTC()
			b.AddedAt = &t
		}
	}

	return b
}

func hasElement(n *html.Node, name string) bool {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, name) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasElement(c, name) {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
