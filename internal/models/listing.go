package models

import "time"

// Listing is one AI-model catalog entry. Lifecycle: listed, then either
// sold (terminal) or deleted by the seller while still unsold.
type Listing struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       *Amount   `json:"price"`
	SellerID    string    `json:"seller_id"`
	ArtifactURI string    `json:"artifact_uri,omitempty"`
	Sold        bool      `json:"sold"`
	RatingTotal int64     `json:"rating_total"`
	RatingCount int64     `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`

	// Buyers is loaded with details reads; at most one entry under the
	// single-buyer model, kept as a list for the catalog read shape.
	Buyers []string `json:"buyers,omitempty"`
}

// AverageRating is always derived from the aggregates, never stored, so
// every reader computes the same value.
func (l *Listing) AverageRating() float64 {
	if l.RatingCount == 0 {
		return 0
	}
	return float64(l.RatingTotal) / float64(l.RatingCount)
}
