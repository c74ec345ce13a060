package domain

// VehicleQuery selects the category tree of one vehicle.
type VehicleQuery struct {
	ManufacturerID int64           `json:"manufacturerId"`
	VehicleID      int64           `json:"vehicleId"`
	CountryID      int64           `json:"countryId"`
	Version        CategoryVersion `json:"version,omitempty"` // empty tries every version
}

// EquivalenceQuery selects the equivalents of one article. VehicleID is optional.
type EquivalenceQuery struct {
	ArticleID int64 `json:"articleId"`
	CountryID int64 `json:"countryId"`
	VehicleID int64 `json:"vehicleId,omitempty"`
}
