package grocery

import (
	"encoding/json"
	"time"
)

// Category is a named grouping for products, unique by exact name. Category
// names are stored as given; no normalization is applied to them, so "Dairy"
// and "dairy" are two distinct categories.
type Category struct {
	ID   int64  `json:"_id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Product is a grocery record owned by exactly one category. Name and units
// are stored in normalized singular lowercase form; quantity is kept as text
// because the UI and the AI both round-trip it as a string.
type Product struct {
	ID         int64      `json:"_id" db:"id"`
	Name       string     `json:"name" db:"name"`
	Quantity   string     `json:"quantity" db:"quantity"`
	Units      string     `json:"units" db:"units"`
	CategoryID int64      `json:"category" db:"category_id"`
	ImagePath  string     `json:"imagePath,omitempty" db:"image_path"`
	ExpiryDate *time.Time `json:"expiryDate,omitempty" db:"expiry_date"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// ParsedItem is one grocery item extracted by an AI backend from free-form
// input. It has no identity of its own; the UI may edit it before submitting
// the batch. Quantity is a json.Number so both numeric model output and
// user-edited strings decode cleanly.
type ParsedItem struct {
	Name     string      `json:"name"`
	Quantity json.Number `json:"quantity"`
	Unit     string      `json:"unit"`
	Category string      `json:"category"`
}

// Item is one entry of a reconcile batch as submitted by the UI.
type Item struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Units    string `json:"units"`
	Category string `json:"category"`
}

// IngredientLink is a shoppable ingredient suggestion inside a generated
// recipe.
type IngredientLink struct {
	Name    string `json:"name"`
	Product string `json:"product"`
	Image   string `json:"image"`
	Rating  string `json:"rating"`
}

// Recipe is a generated recipe with shoppable ingredient links. Recipes are
// returned to the caller but never persisted.
type Recipe struct {
	Ingredients []IngredientLink `json:"ingredients"`
	Recipe      string           `json:"recipe"`
}

// Error codes surfaced in failure envelopes and logs.
const (
	CodeInvalidInput            = "INVALID_INPUT"
	CodeExtractionAmbiguous     = "EXTRACTION_AMBIGUOUS"
	CodePersistenceFailed       = "PERSISTENCE_FAILED"
	CodeImageProvisioningFailed = "IMAGE_PROVISIONING_FAILED"
)
