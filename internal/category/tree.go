package category

import (
	"sort"

	"autoparts/catalog/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type levelRef struct {
	level int
	text  string
	id    string
}

// populatedLevels returns the levels of r that carry both a text and an id.
// Partial levels are dropped.
func populatedLevels(r *domain.CategoryRecord) []levelRef {
	refs := make([]levelRef, 0, domain.MaxCategoryLevels)
	for n := 1; n <= domain.MaxCategoryLevels; n++ {
		text, id := r.LevelAt(n)
		if text == nil || id == nil || *text == "" || *id == "" {
			continue
		}
		refs = append(refs, levelRef{level: n, text: *text, id: *id})
	}
	return refs
}

// BuildTree folds canonical records into a tree. Shared ancestors are merged by
// id, every node counts the records passing through it and the deepest level of
// each record becomes selectable. Children and roots are sorted by text.
func BuildTree(records []domain.CategoryRecord) []*domain.CategoryTreeNode {
	nodes := make(map[string]*domain.CategoryTreeNode)

	for i := range records {
		levels := populatedLevels(&records[i])
		for j, ref := range levels {
			n, ok := nodes[ref.id]
			if !ok {
				n = &domain.CategoryTreeNode{
					ID:       ref.id,
					Text:     ref.text,
					Level:    ref.level,
					Children: make([]*domain.CategoryTreeNode, 0),
				}
				nodes[ref.id] = n
			}

			n.CategoryCount++

			if j == len(levels)-1 {
				original := records[i]
				n.IsSelectable = true
				n.OriginalCategory = &original
			}
		}
	}

	// A child keeps the first parent it was registered under. Links only go one
	// level down, by the level a node was created at, so the result has no cycles.
	parentOf := make(map[string]string)
	for i := range records {
		levels := populatedLevels(&records[i])
		for j := 0; j+1 < len(levels); j++ {
			parent, child := nodes[levels[j].id], nodes[levels[j+1].id]
			if levels[j+1].level != levels[j].level+1 || child.Level != parent.Level+1 {
				continue
			}
			if _, linked := parentOf[child.ID]; linked {
				continue
			}
			parentOf[child.ID] = parent.ID
			parent.Children = append(parent.Children, child)
		}
	}

	roots := make([]*domain.CategoryTreeNode, 0)
	for _, n := range nodes {
		if n.Level == 1 {
			roots = append(roots, n)
		}
	}

	c := collate.New(language.Und)
	sortNodes(c, roots)
	return roots
}

func sortNodes(c *collate.Collator, nodes []*domain.CategoryTreeNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if cmp := c.CompareString(nodes[i].Text, nodes[j].Text); cmp != 0 {
			return cmp < 0
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortNodes(c, n.Children)
	}
}

// Walk visits nodes depth first in display order until fn returns false.
func Walk(roots []*domain.CategoryTreeNode, fn func(n *domain.CategoryTreeNode) bool) bool {
	for _, n := range roots {
		if !fn(n) {
			return false
		}
		if !Walk(n.Children, fn) {
			return false
		}
	}
	return true
}

// Find returns the node with the given id, or nil.
func Find(roots []*domain.CategoryTreeNode, id string) *domain.CategoryTreeNode {
	var found *domain.CategoryTreeNode
	Walk(roots, func(n *domain.CategoryTreeNode) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// CountSelectable returns the number of selectable nodes.
func CountSelectable(roots []*domain.CategoryTreeNode) int {
	count := 0
	Walk(roots, func(n *domain.CategoryTreeNode) bool {
		if n.IsSelectable {
			count++
		}
		return true
	})
	return count
}
