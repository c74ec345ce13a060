package domain

// EquivalenceResult is the "equivalent parts" section of a product page.
type EquivalenceResult struct {
	Base          ArticleDetails   `json:"base"`
	OEMReferences []OEMNumber      `json:"oemReferences"`
	Equivalents   []ArticleDetails `json:"equivalents"`
	Note          string           `json:"note,omitempty"`
}

type EquivalenceEventType string

const (
	EquivalenceEventArticle  EquivalenceEventType = "article"
	EquivalenceEventComplete EquivalenceEventType = "complete"
)

// EquivalenceEvent is emitted by a streaming equivalence run. Article is set for
// article events, Result for the final complete event.
type EquivalenceEvent struct {
	Type    EquivalenceEventType `json:"type"`
	Article *ArticleDetails      `json:"article,omitempty"`
	Result  *EquivalenceResult   `json:"result,omitempty"`
}

// Data returns the event payload.
func (e EquivalenceEvent) Data() any {
	if e.Type == EquivalenceEventComplete {
		return e.Result
	}
	return e.Article
}
