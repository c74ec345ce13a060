package category

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"autoparts/catalog/internal/domain"
)

var ErrUnknownVersion = errors.New("unknown category payload version")

// node is the version independent shape the nested payloads are parsed into.
type node struct {
	id       string
	label    string
	children []*node
}

// Normalize converts an upstream category payload of the given version into
// canonical records. v1 payloads are decoded and returned as they are.
func Normalize(version domain.CategoryVersion, raw []byte) ([]domain.CategoryRecord, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return []domain.CategoryRecord{}, nil
	}

	var roots []*node
	var err error

	switch version {
	case domain.CategoryVersionV1:
		return decodeV1(raw)
	case domain.CategoryVersionV2:
		roots, err = parseV2(raw)
	case domain.CategoryVersionV3:
		roots, err = parseV3(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
	if err != nil {
		return nil, err
	}

	return flatten(roots), nil
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode category payload: %w", err)
	}
	return v, nil
}

func decodeV1(raw []byte) ([]domain.CategoryRecord, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}

	// Accept both a bare list and {"categories": [...]}.
	if obj, ok := v.(map[string]any); ok {
		v = obj["categories"]
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("v1 category payload must be a list, got %T", v)
	}

	records := make([]domain.CategoryRecord, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		rec := domain.CategoryRecord{Level: int(toInt(obj["level"]))}
		rec.LevelText1, rec.LevelID1 = nullable(obj["levelText_1"]), nullable(obj["levelId_1"])
		rec.LevelText2, rec.LevelID2 = nullable(obj["levelText_2"]), nullable(obj["levelId_2"])
		rec.LevelText3, rec.LevelID3 = nullable(obj["levelText_3"]), nullable(obj["levelId_3"])
		rec.LevelText4, rec.LevelID4 = nullable(obj["levelText_4"]), nullable(obj["levelId_4"])
		records = append(records, rec)
	}

	return records, nil
}

// parseV2 reads {"<name>": {"categoryName", "categoryId", "children": {...}}}.
func parseV2(raw []byte) ([]*node, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("v2 category payload must be an object, got %T", v)
	}

	return v2Children(obj), nil
}

func v2Children(obj map[string]any) []*node {
	nodes := make([]*node, 0, len(obj))
	for _, key := range orderedKeys(obj) {
		child, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}

		n := &node{
			id:    scalar(child["categoryId"]),
			label: scalar(child["categoryName"]),
		}
		if children, ok := child["children"].(map[string]any); ok {
			n.children = v2Children(children)
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// parseV3 reads {"<id>": {"text", "children": {"<id>": {...}}}}. A list of
// top-level items is accepted too; their id is recovered from the item itself.
func parseV3(raw []byte) ([]*node, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}

	switch top := v.(type) {
	case map[string]any:
		return v3Children(top), nil
	case []any:
		nodes := make([]*node, 0, len(top))
		for _, item := range top {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			nodes = append(nodes, v3Node(recoverID(obj), obj))
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("v3 category payload must be an object or a list, got %T", v)
	}
}

func v3Children(obj map[string]any) []*node {
	nodes := make([]*node, 0, len(obj))
	for _, key := range orderedKeys(obj) {
		child, ok := obj[key].(map[string]any)
		if !ok {
			continue
		}
		nodes = append(nodes, v3Node(key, child))
	}
	return nodes
}

func v3Node(id string, obj map[string]any) *node {
	n := &node{
		id:    id,
		label: scalar(obj["text"]),
	}
	if children, ok := obj["children"].(map[string]any); ok {
		n.children = v3Children(children)
	}
	return n
}

// recoverID finds the id of a top-level v3 item that is not keyed by its id:
// an explicit "id" field, else the first key that is neither "text" nor
// "children" (its scalar value, or the key itself when the value is nested).
func recoverID(obj map[string]any) string {
	if id := scalar(obj["id"]); id != "" {
		return id
	}
	for _, key := range orderedKeys(obj) {
		if key == "text" || key == "children" {
			continue
		}
		if id := scalar(obj[key]); id != "" {
			return id
		}
		return key
	}
	return ""
}

// flatten walks the tree depth first and emits one record per leaf.
func flatten(roots []*node) []domain.CategoryRecord {
	records := make([]domain.CategoryRecord, 0)

	var walk func(n *node, path []*node)
	walk = func(n *node, path []*node) {
		path = append(path, n)
		if len(n.children) == 0 {
			records = append(records, recordFromPath(path))
			return
		}
		for _, child := range n.children {
			walk(child, path)
		}
	}

	for _, root := range roots {
		walk(root, nil)
	}
	return records
}

func recordFromPath(path []*node) domain.CategoryRecord {
	if len(path) > domain.MaxCategoryLevels {
		// Keep the top of the path and the leaf itself.
		path = []*node{path[0], path[1], path[2], path[len(path)-1]}
	}

	rec := domain.CategoryRecord{Level: len(path)}
	for i, n := range path {
		rec.SetLevel(i+1, n.label, n.id)
	}
	return rec
}
