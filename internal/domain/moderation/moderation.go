package moderation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/tradepost/tradepost/internal/domain/listing"
)

// Severity grades a user warning.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func ValidateSeverity(s Severity) error {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return nil
	default:
		return errors.New("severity must be low, medium or high")
	}
}

// Warning is a moderation artifact issued against a user.
type Warning struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	AdminID   int64      `json:"adminId"`
	Reason    string     `json:"reason"`
	Severity  Severity   `json:"severity"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// FilterRule is a content filter: a boolean expression evaluated against
// listing fields. Listings matching an active rule get flagged.
type FilterRule struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	CreatedBy  int64     `json:"createdBy"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	compiled *govaluate.EvaluableExpression
}

// Compile parses the rule expression and verifies it evaluates to a
// boolean against a probe listing. Invalid expressions never reach
// storage.
func (f *FilterRule) Compile() error {
	expr := strings.TrimSpace(f.Expression)
	if expr == "" {
		return errors.New("filter expression cannot be empty")
	}
	compiled, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}
	f.compiled = compiled

	probe := &listing.Listing{Title: "probe", Category: "other", Price: 1, Status: listing.StatusActive}
	if _, err := f.Matches(probe); err != nil {
		return err
	}
	return nil
}

// Matches evaluates the rule against a listing.
func (f *FilterRule) Matches(l *listing.Listing) (bool, error) {
	if f.compiled == nil {
		if err := f.compileOnly(); err != nil {
			return false, err
		}
	}
	result, err := f.compiled.Evaluate(listingParams(l))
	if err != nil {
		return false, fmt.Errorf("filter evaluation failed: %w", err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, errors.New("filter expression did not evaluate to a boolean")
	}
	return b, nil
}

func (f *FilterRule) compileOnly() error {
	compiled, err := govaluate.NewEvaluableExpression(strings.TrimSpace(f.Expression))
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}
	f.compiled = compiled
	return nil
}

// listingParams flattens the fields a filter expression may reference.
func listingParams(l *listing.Listing) map[string]any {
	return map[string]any{
		"title":       l.Title,
		"description": l.Description,
		"price":       l.Price,
		"category":    l.Category,
		"location":    l.Location,
		"status":      string(l.Status),
		"flagged":     l.Flagged,
		"views":       l.Views,
		"seller_id":   l.SellerID,
		"photos":      len(l.Photos),
	}
}
