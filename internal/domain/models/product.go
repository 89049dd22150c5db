package models

// Product is a catalog item. The order core reads it only to populate
// line-item snapshots; catalog management lives elsewhere.
type Product struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Price  int64    `json:"price"` // paise
	Images []string `json:"images,omitempty"`
}
