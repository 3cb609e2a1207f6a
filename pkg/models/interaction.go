package models

import (
	"time"

	"github.com/google/uuid"
)

type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionLike     InteractionType = "like"
	InteractionPurchase InteractionType = "purchase"
	InteractionCartAdd  InteractionType = "cart_add"
	InteractionSearch   InteractionType = "search"
)

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionLike, InteractionPurchase, InteractionCartAdd, InteractionSearch:
		return true
	}
	return false
}

// Qualifying reports whether the interaction feeds profile construction.
func (t InteractionType) Qualifying() bool {
	switch t {
	case InteractionView, InteractionLike, InteractionPurchase:
		return true
	}
	return false
}

// Positive reports whether the interaction is a collaborative signal.
func (t InteractionType) Positive() bool {
	return t == InteractionLike || t == InteractionPurchase
}

type InteractionMetadata struct {
	SearchQuery string   `json:"search_query,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

// Interaction references a product that may no longer exist in the catalog.
type Interaction struct {
	UserID    uuid.UUID           `json:"user_id" db:"user_id"`
	ProductID int64               `json:"product_id" db:"product_id"`
	Type      InteractionType     `json:"type" db:"interaction_type"`
	Timestamp time.Time           `json:"timestamp" db:"timestamp"`
	Metadata  InteractionMetadata `json:"metadata"`
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type UserPreferences struct {
	Categories []string    `json:"categories,omitempty"`
	PriceRange *PriceRange `json:"price_range,omitempty"`
}

type UserHistory struct {
	UserID       uuid.UUID       `json:"user_id"`
	Interactions []Interaction   `json:"interactions"`
	Preferences  UserPreferences `json:"preferences"`
}

// InteractionEvent is the message published by the shop for every recorded interaction.
type InteractionEvent struct {
	UserID    uuid.UUID       `json:"user_id"`
	ProductID int64           `json:"product_id"`
	Type      InteractionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
}
