package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// Service renders the persisted corpus as browser bookmark files.
type Service struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewService creates an exporter over the storage manager.
func NewService(storage interfaces.StorageManager, logger arbor.ILogger) interfaces.ExportService {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// snapshot is one consistent read of the category forest and all
// bookmarks, indexed for tree walking.
type snapshot struct {
	categories map[int64]*models.Category
	children   map[int64][]*models.Category
	roots      []*models.Category
	byCategory map[int64][]*models.Bookmark
	orphans    []*models.Bookmark // no category
}

func (s *Service) load(ctx context.Context) (*snapshot, error) {
	categories, err := s.storage.CategoryStorage().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	bookmarks, err := s.storage.BookmarkStorage().List(ctx, models.BookmarkFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load bookmarks: %w", err)
	}

	sn := &snapshot{
		categories: make(map[int64]*models.Category, len(categories)),
		children:   make(map[int64][]*models.Category),
		byCategory: make(map[int64][]*models.Bookmark),
	}
	for _, cat := range categories {
		sn.categories[cat.ID] = cat
	}
	for _, cat := range categories {
		if cat.ParentID != nil {
			if _, ok := sn.categories[*cat.ParentID]; ok {
				sn.children[*cat.ParentID] = append(sn.children[*cat.ParentID], cat)
				continue
			}
		}
		sn.roots = append(sn.roots, cat)
	}
	for _, list := range sn.children {
		sortCategories(list)
	}
	sortCategories(sn.roots)

	for _, bm := range bookmarks {
		if bm.CategoryID == nil {
			sn.orphans = append(sn.orphans, bm)
			continue
		}
		sn.byCategory[*bm.CategoryID] = append(sn.byCategory[*bm.CategoryID], bm)
	}

	return sn, nil
}

func sortCategories(list []*models.Category) {
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}

// scope returns the category ids to emit: categories holding at least
// one in-scope bookmark somewhere in their subtree, plus their
// ancestors. A non-nil filter restricts to that category's subtree and
// its ancestor chain.
func (sn *snapshot) scope(filter *int64) map[int64]bool {
	// With a filter, only the chosen subtree is eligible
	var subtree map[int64]bool
	if filter != nil {
		subtree = map[int64]bool{}
		var mark func(id int64)
		mark = func(id int64) {
			subtree[id] = true
			for _, child := range sn.children[id] {
				mark(child.ID)
			}
		}
		mark(*filter)
	}

	var subtreeHasBookmark func(id int64) bool
	subtreeHasBookmark = func(id int64) bool {
		if len(sn.byCategory[id]) > 0 {
			return true
		}
		for _, child := range sn.children[id] {
			if subtreeHasBookmark(child.ID) {
				return true
			}
		}
		return false
	}

	emit := map[int64]bool{}
	for id, cat := range sn.categories {
		if subtree != nil && !subtree[id] {
			continue
		}
		if !subtreeHasBookmark(id) {
			continue
		}
		emit[id] = true
		// Ancestors frame the emitted category in the output
		for c := cat; c.ParentID != nil; {
			parent, ok := sn.categories[*c.ParentID]
			if !ok {
				break
			}
			emit[parent.ID] = true
			c = parent
		}
	}
	return emit
}

// ExportHTML renders Netscape bookmark HTML, optionally filtered to one
// category subtree.
func (s *Service) ExportHTML(ctx context.Context, categoryID *int64) (string, error) {
	sn, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	emit := sn.scope(categoryID)

	var b strings.Builder
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	for _, root := range sn.roots {
		s.writeFolder(&b, sn, root, emit, 1)
	}

	// Uncategorized bookmarks sit at the top level of a full export
	if categoryID == nil {
		for _, bm := range sn.orphans {
			writeAnchor(&b, bm, 1)
		}
	}

	b.WriteString("</DL><p>\n")
	return b.String(), nil
}

func (s *Service) writeFolder(b *strings.Builder, sn *snapshot, cat *models.Category, emit map[int64]bool, indent int) {
	if !emit[cat.ID] {
		return
	}
	prefix := strings.Repeat("    ", indent)

	fmt.Fprintf(b, "%s<DT><H3 ADD_DATE=\"%d\">%s</H3>\n", prefix, cat.CreatedAt.Unix(), html.EscapeString(cat.Name))
	fmt.Fprintf(b, "%s<DL><p>\n", prefix)

	for _, child := range sn.children[cat.ID] {
		s.writeFolder(b, sn, child, emit, indent+1)
	}
	for _, bm := range sn.byCategory[cat.ID] {
		writeAnchor(b, bm, indent+1)
	}

	fmt.Fprintf(b, "%s</DL><p>\n", prefix)
}

func writeAnchor(b *strings.Builder, bm *models.Bookmark, indent int) {
	prefix := strings.Repeat("    ", indent)
	fmt.Fprintf(b, "%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
		prefix, html.EscapeString(bm.URL), bm.CreatedAt.Unix(), html.EscapeString(bm.Title))
}

// jsonNode is one entry of the nested chrome-style export.
type jsonNode struct {
	Type      string      `json:"type"` // "folder" or "url"
	Name      string      `json:"name"`
	URL       string      `json:"url,omitempty"`
	DateAdded int64       `json:"date_added,omitempty"`
	Children  []*jsonNode `json:"children,omitempty"`
}

type jsonExport struct {
	Version int                  `json:"version"`
	Roots   map[string]*jsonNode `json:"roots"`
}

// ExportJSON renders the nested chrome-style JSON tree: uncategorized
// bookmarks in bookmark_bar, the category forest mirrored under other.
func (s *Service) ExportJSON(ctx context.Context, categoryID *int64) ([]byte, error) {
	sn, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	emit := sn.scope(categoryID)

	bar := &jsonNode{Type: "folder", Name: "Bookmarks bar", Children: []*jsonNode{}}
	if categoryID == nil {
		for _, bm := range sn.orphans {
			bar.Children = append(bar.Children, bookmarkNode(bm))
		}
	}

	other := &jsonNode{Type: "folder", Name: "Other bookmarks", Children: []*jsonNode{}}
	for _, root := range sn.roots {
		if node := s.buildNode(sn, root, emit); node != nil {
			other.Children = append(other.Children, node)
		}
	}

	export := jsonExport{
		Version: 1,
		Roots: map[string]*jsonNode{
			"bookmark_bar": bar,
			"other":        other,
		},
	}
	return json.MarshalIndent(export, "", "  ")
}

func (s *Service) buildNode(sn *snapshot, cat *models.Category, emit map[int64]bool) *jsonNode {
	if !emit[cat.ID] {
		return nil
	}
	node := &jsonNode{
		Type:      "folder",
		Name:      cat.Name,
		DateAdded: cat.CreatedAt.Unix(),
		Children:  []*jsonNode{},
	}
	for _, child := range sn.children[cat.ID] {
		if childNode := s.buildNode(sn, child, emit); childNode != nil {
			node.Children = append(node.Children, childNode)
		}
	}
	for _, bm := range sn.byCategory[cat.ID] {
		node.Children = append(node.Children, bookmarkNode(bm))
	}
	return node
}

func bookmarkNode(bm *models.Bookmark) *jsonNode {
	return &jsonNode{
		Type:      "url",
		Name:      bm.Title,
		URL:       bm.URL,
		DateAdded: bm.CreatedAt.Unix(),
	}
}
