package domain

import "fmt"

// MaxCategoryLevels is the depth of the canonical category record.
const MaxCategoryLevels = 4

// CategoryVersion selects one of the upstream category payload shapes.
type CategoryVersion string

func (v CategoryVersion) String() string {
	return string(v)
}

const (
	CategoryVersionV1 CategoryVersion = "v1" // flat records, already canonical
	CategoryVersionV2 CategoryVersion = "v2" // nested, keyed by category name
	CategoryVersionV3 CategoryVersion = "v3" // nested, keyed by category id
)

// CategoryVersions lists the versions in preference order.
var CategoryVersions = []CategoryVersion{
	CategoryVersionV1,
	CategoryVersionV2,
	CategoryVersionV3,
}

// ParseCategoryVersion accepts "v1", "v2", "v3" or an empty string, which means
// "try every version".
func ParseCategoryVersion(s string) (CategoryVersion, error) {
	switch v := CategoryVersion(s); v {
	case "", CategoryVersionV1, CategoryVersionV2, CategoryVersionV3:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported category version %q", s)
	}
}

// CategoryRecord is the canonical ("v1") flat category row. A populated level n
// implies levels 1..n are populated as well.
type CategoryRecord struct {
	Level      int     `json:"level"`
	LevelText1 *string `json:"levelText_1"`
	LevelID1   *string `json:"levelId_1"`
	LevelText2 *string `json:"levelText_2"`
	LevelID2   *string `json:"levelId_2"`
	LevelText3 *string `json:"levelText_3"`
	LevelID3   *string `json:"levelId_3"`
	LevelText4 *string `json:"levelText_4"`
	LevelID4   *string `json:"levelId_4"`
}

// LevelAt returns the text and id of level n (1-based). Out of range levels are nil.
func (r *CategoryRecord) LevelAt(n int) (text, id *string) {
	switch n {
	case 1:
		return r.LevelText1, r.LevelID1
	case 2:
		return r.LevelText2, r.LevelID2
	case 3:
		return r.LevelText3, r.LevelID3
	case 4:
		return r.LevelText4, r.LevelID4
	}
	return nil, nil
}

// SetLevel stores text and id at level n. Empty values are stored as null.
func (r *CategoryRecord) SetLevel(n int, text, id string) {
	t, i := optional(text), optional(id)
	switch n {
	case 1:
		r.LevelText1, r.LevelID1 = t, i
	case 2:
		r.LevelText2, r.LevelID2 = t, i
	case 3:
		r.LevelText3, r.LevelID3 = t, i
	case 4:
		r.LevelText4, r.LevelID4 = t, i
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CategoryTreeNode is one node of the category tree shown to the shopper.
type CategoryTreeNode struct {
	ID               string              `json:"id"`
	Text             string              `json:"text"`
	Level            int                 `json:"level"`
	Children         []*CategoryTreeNode `json:"children"`
	CategoryCount    int                 `json:"categoryCount"`    // records passing through this node
	IsSelectable     bool                `json:"isSelectable"`     // terminates at least one record
	OriginalCategory *CategoryRecord     `json:"originalCategory,omitempty"`
}

// CategoryTree is the tree built for one vehicle context.
type CategoryTree struct {
	Version     CategoryVersion     `json:"version"`
	Roots       []*CategoryTreeNode `json:"categories"`
	RecordCount int                 `json:"recordCount"`
	LeafCount   int                 `json:"leafCount"`
	Note        string              `json:"note,omitempty"`
}
