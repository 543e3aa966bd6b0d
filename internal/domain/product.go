package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	Variants    []Variant       `json:"variants,omitempty"`
	BestSeller  bool            `json:"best_seller"`
	Featured    bool            `json:"featured"`
	Stock       int             `json:"stock"`
}

type Variant struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Key returns a stable serialization of the variant used for cart identity.
// The ID is canonical when present; unkeyed variants fall back to name+price.
func (v Variant) Key() string {
	if v.ID != "" {
		return v.ID
	}
	return v.Name + "|" + v.Price.String()
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// ListingQuery describes a paged product listing request. Two queries with the
// same page, size, sort and filters are the same query regardless of how the
// filter map was built.
type ListingQuery struct {
	Page    int
	PerPage int
	Sort    string
	Filters map[string]string
}
