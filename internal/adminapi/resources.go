package adminapi

import (
	"time"
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug,omitempty"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	BrandID     string    `json:"brandId,omitempty"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Attributes  []Value   `json:"attributes,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Value is the value of an attribute for one product.
type Value struct {
	AttributeID string `json:"attributeId"`
	Value       string `json:"value"`
}

type Brand struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug,omitempty"`
	LogoURL string `json:"logoUrl,omitempty"`
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

type Attribute struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Values []string `json:"values,omitempty"`
}
