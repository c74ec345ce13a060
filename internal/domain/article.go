package domain

import (
	"strconv"
	"strings"
)

// OEMNumber is an original-equipment cross reference of an article.
type OEMNumber struct {
	Brand  string `json:"brand"`
	Number string `json:"oem"`
}

type Media struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// ArticleDetails is a catalog part. ArticleNo is only unique per supplier.
type ArticleDetails struct {
	ArticleID      int64       `json:"articleId"`
	SupplierID     int64       `json:"supplierId"`
	SupplierName   string      `json:"supplierName"`
	ArticleNo      string      `json:"articleNo"`
	ProductName    string      `json:"articleProductName,omitempty"`
	ProductGroupID int64       `json:"productGroupId"`
	EANNumbers     []string    `json:"eanNumbers,omitempty"`
	OEMNumbers     []OEMNumber `json:"oemNumbers,omitempty"`
	Media          []Media     `json:"media,omitempty"`
}

// SupplierKey identifies an article by supplier and case-insensitive article number.
func (a *ArticleDetails) SupplierKey() string {
	return strconv.FormatInt(a.SupplierID, 10) + ":" + strings.ToLower(a.ArticleNo)
}

// SameArticle reports whether a and b describe the same part: equal article ids
// or equal supplier keys.
func (a *ArticleDetails) SameArticle(b *ArticleDetails) bool {
	return a.ArticleID == b.ArticleID || a.SupplierKey() == b.SupplierKey()
}
