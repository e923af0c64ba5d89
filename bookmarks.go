package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// Chrome bookmark timestamps are microseconds since 1601-01-01.
const chromeEpochOffset = 11644473600

// bookmarkNode is one entry in a Chrome-format bookmarks file: a folder
// with children or a leaf URL. Only the fields the source acts on are
// modeled; everything else Chrome stores (guid, id, date_modified,
// meta_info) is carried in extra and written back verbatim.
type bookmarkNode struct {
	Type      string
	Name      string
	URL       string
	DateAdded string
	Children  []*bookmarkNode

	extra map[string]json.RawMessage
}

func (n *bookmarkNode) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	take := func(key string, dst interface{}) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		return json.Unmarshal(v, dst)
	}
	if err := take("type", &n.Type); err != nil {
		return err
	}
	if err := take("name", &n.Name); err != nil {
		return err
	}
	if err := take("url", &n.URL); err != nil {
		return err
	}
	if err := take("date_added", &n.DateAdded); err != nil {
		return err
	}
	if err := take("children", &n.Children); err != nil {
		return err
	}
	n.extra = raw
	return nil
}

func (n *bookmarkNode) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(n.extra)+5)
	for k, v := range n.extra {
		out[k] = v
	}
	put := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = data
		return nil
	}
	if err := put("type", n.Type); err != nil {
		return nil, err
	}
	if err := put("name", n.Name); err != nil {
		return nil, err
	}
	if n.URL != "" {
		if err := put("url", n.URL); err != nil {
			return nil, err
		}
	}
	if n.DateAdded != "" {
		if err := put("date_added", n.DateAdded); err != nil {
			return nil, err
		}
	}
	if n.Children != nil {
		if err := put("children", n.Children); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// bookmarkFile is the top-level container: named roots, each a folder tree.
// Top-level siblings of roots (checksum, version, sync_metadata) ride along
// in extra, untouched by the rewrite.
type bookmarkFile struct {
	Roots map[string]*bookmarkNode

	extra map[string]json.RawMessage
}

func (f *bookmarkFile) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["roots"]; ok {
		delete(raw, "roots")
		if err := json.Unmarshal(v, &f.Roots); err != nil {
			return err
		}
	}
	f.extra = raw
	return nil
}

func (f *bookmarkFile) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(f.extra)+1)
	for k, v := range f.extra {
		out[k] = v
	}
	roots, err := json.Marshal(f.Roots)
	if err != nil {
		return nil, err
	}
	out["roots"] = roots
	return json.Marshal(out)
}

// BookmarkSource reads URLs out of one named folder in a bookmarks file.
// Completed items are removed from the folder immediately, one rewrite of
// the whole file per item, so a crash mid-run leaves at most already
// archived URLs behind — the output-path dedup makes that self-healing.
type BookmarkSource struct {
	path        string
	folderName  string
	defaultDate string
	retryFailed bool

	file   *bookmarkFile
	folder *bookmarkNode
}

// NewBookmarkSource creates a bookmark-folder source. retryFailed defaults
// to true for this variant: failed items stay in the folder.
func NewBookmarkSource(path, folderName, defaultDate string, retryFailed bool) *BookmarkSource {
	return &BookmarkSource{
		path:        path,
		folderName:  folderName,
		defaultDate: defaultDate,
		retryFailed: retryFailed,
	}
}

func (s *BookmarkSource) Items() ([]WorklistItem, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("bookmarks file %s: %w", s.path, ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("reading bookmarks file %s: %w", s.path, err)
	}

	var file bookmarkFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing bookmarks file %s: %w", s.path, err)
	}
	s.file = &file

	s.folder = findFolder(file.orderedRoots(), s.folderName)
	if s.folder == nil {
		return nil, fmt.Errorf("bookmark folder %q not found: %w", s.folderName, ErrSourceUnavailable)
	}

	var items []WorklistItem
	collectLeaves(s.folder, func(n *bookmarkNode) {
		items = append(items, WorklistItem{
			URL:       n.URL,
			Title:     n.Name,
			SavedDate: chromeDate(n.DateAdded, s.defaultDate),
			SourceID:  n.URL,
		})
	})
	return items, nil
}

// Ack removes the bookmark as soon as the item is archived or skipped.
// Failed items stay in place under the retry policy.
func (s *BookmarkSource) Ack(item WorklistItem, st Status) error {
	if st == StatusFailed && s.retryFailed {
		return nil
	}
	removeLeaf(s.folder, item.URL)
	return s.write()
}

func (s *BookmarkSource) Close(report *RunReport) error {
	return nil
}

func (s *BookmarkSource) write() error {
	data, err := json.MarshalIndent(s.file, "", "   ")
	if err != nil {
		return fmt.Errorf("encoding bookmarks file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("rewriting bookmarks file %s: %w", s.path, err)
	}
	return nil
}

// orderedRoots returns the root folders in a stable order: the well-known
// Chrome roots first, anything else sorted by name.
func (f *bookmarkFile) orderedRoots() []*bookmarkNode {
	known := []string{"bookmark_bar", "other", "synced"}
	var roots []*bookmarkNode
	seen := make(map[string]bool)
	for _, name := range known {
		if node, ok := f.Roots[name]; ok {
			roots = append(roots, node)
			seen[name] = true
		}
	}
	var rest []string
	for name := range f.Roots {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		roots = append(roots, f.Roots[name])
	}
	return roots
}

// findFolder locates the first folder with the given name, depth-first.
func findFolder(roots []*bookmarkNode, name string) *bookmarkNode {
	for _, root := range roots {
		if found := findFolderIn(root, name); found != nil {
			return found
		}
	}
	return nil
}

func findFolderIn(node *bookmarkNode, name string) *bookmarkNode {
	if node == nil || node.Type != "folder" {
		return nil
	}
	if node.Name == name {
		return node
	}
	for _, child := range node.Children {
		if found := findFolderIn(child, name); found != nil {
			return found
		}
	}
	return nil
}

// collectLeaves visits every URL entry under the folder in stored order.
func collectLeaves(folder *bookmarkNode, visit func(*bookmarkNode)) {
	for _, child := range folder.Children {
		switch child.Type {
		case "url":
			visit(child)
		case "folder":
			collectLeaves(child, visit)
		}
	}
}

// removeLeaf drops the first URL entry matching url, rebuilding each child
// slice it touches instead of mutating through shared references.
func removeLeaf(folder *bookmarkNode, url string) bool {
	for i, child := range folder.Children {
		if child.Type == "url" && child.URL == url {
			rebuilt := make([]*bookmarkNode, 0, len(folder.Children)-1)
			rebuilt = append(rebuilt, folder.Children[:i]...)
			rebuilt = append(rebuilt, folder.Children[i+1:]...)
			folder.Children = rebuilt
			return true
		}
		if child.Type == "folder" && removeLeaf(child, url) {
			return true
		}
	}
	return false
}

// chromeDate converts a Chrome microsecond timestamp to YYYY-MM-DD, falling
// back to the run's default date when absent or unparseable.
func chromeDate(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	micros, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || micros <= 0 {
		return fallback
	}
	secs := micros/1_000_000 - chromeEpochOffset
	if secs <= 0 {
		return fallback
	}
	return time.Unix(secs, 0).UTC().Format("2006-01-02")
}
