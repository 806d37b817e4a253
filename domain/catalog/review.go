package catalog

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrAlreadyReviewed = errors.New("user already reviewed this product")
)

// Review is one customer's review. A user reviews a product at most once;
// the (product, user) pair is a unique key in storage.
type Review struct {
	ID        string    `gorm:"primaryKey;type:text"`
	ProductID string    `gorm:"not null;type:text;uniqueIndex:idx_review_product_user"`
	UserID    string    `gorm:"not null;type:text;uniqueIndex:idx_review_product_user"`
	UserName  string    `gorm:"type:text"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string    `gorm:"type:text"`
	Images    []string  `gorm:"serializer:json"`
	CreatedAt time.Time `gorm:"index"`
}

func (Review) TableName() string {
	return "product_reviews"
}

// Validate checks the rating range and that the review is attributed.
func (r Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("review user is required")
	}
	return nil
}

// ReviewSet holds a product's reviews keyed by user, exposed in submission order.
type ReviewSet struct {
	byUser map[string]Review
	order  []string
	sum    int
}

// NewReviewSet builds a set from stored reviews. Later duplicates for the same
// user are ignored.
func NewReviewSet(reviews []Review) *ReviewSet {
	sorted := make([]Review, len(reviews))
	copy(sorted, reviews)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	set := &ReviewSet{byUser: make(map[string]Review, len(reviews))}
	for _, r := range sorted {
		_ = set.Add(r)
	}
	return set
}

// Add inserts the review unless the user already has one.
func (s *ReviewSet) Add(r Review) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if _, exists := s.byUser[r.UserID]; exists {
		return ErrAlreadyReviewed
	}
	if s.byUser == nil {
		s.byUser = make(map[string]Review)
	}
	s.byUser[r.UserID] = r
	s.order = append(s.order, r.UserID)
	s.sum += r.Rating
	return nil
}

// Has reports whether userID has reviewed.
func (s *ReviewSet) Has(userID string) bool {
	_, ok := s.byUser[userID]
	return ok
}

// Len returns the number of reviews.
func (s *ReviewSet) Len() int {
	return len(s.order)
}

// List returns reviews in submission order.
func (s *ReviewSet) List() []Review {
	out := make([]Review, 0, len(s.order))
	for _, userID := range s.order {
		out = append(out, s.byUser[userID])
	}
	return out
}

// Rating returns the mean rating and count over the set.
func (s *ReviewSet) Rating() Rating {
	if len(s.order) == 0 {
		return Rating{}
	}
	return Rating{
		Average: float64(s.sum) / float64(len(s.order)),
		Count:   len(s.order),
	}
}
