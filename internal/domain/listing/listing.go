package listing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Status represents listing lifecycle status.
type Status string

const (
	StatusActive   Status = "active"
	StatusSold     Status = "sold"
	StatusReserved Status = "reserved"
	StatusDeleted  Status = "deleted"
)

// Listing limits. Price bounds are inclusive.
const (
	MinTitleLength       = 3
	MaxTitleLength       = 100
	MaxDescriptionLength = 2000
	MinPrice             = 0.01
	MaxPrice             = 1000000.00
	MaxPhotos            = 5
)

// Categories a listing may belong to.
var Categories = []string{
	"electronics", "clothing", "home", "vehicles", "services",
	"jobs", "pets", "sports", "books", "other",
}

func IsCategory(id string) bool {
	for _, c := range Categories {
		if c == id {
			return true
		}
	}
	return false
}

// Listing represents an item offered on the marketplace.
type Listing struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"sellerId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Location    string    `json:"location,omitempty"`
	Status      Status    `json:"status"`
	Flagged     bool      `json:"flagged"`
	FlagReason  string    `json:"flagReason,omitempty"`
	Views       int       `json:"views"`
	Photos      []Photo   `json:"photos,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Photo is a transport-level media reference attached to a listing.
type Photo struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listingId"`
	FileRef   string    `json:"fileRef"`
	Primary   bool      `json:"primary"`
	CreatedAt time.Time `json:"createdAt"`
}

func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title cannot be empty")
	}
	if len(title) < MinTitleLength {
		return errors.New("title must be at least 3 characters")
	}
	if len(title) > MaxTitleLength {
		return errors.New("title cannot exceed 100 characters")
	}
	return nil
}

func ValidateDescription(desc string) error {
	if len(strings.TrimSpace(desc)) > MaxDescriptionLength {
		return errors.New("description cannot exceed 2000 characters")
	}
	return nil
}

// ParsePrice validates and normalizes a user-entered price against the
// package default bounds. Currency symbols, thousands separators and
// spaces are stripped; the result is rounded to two decimals.
func ParsePrice(text string) (float64, error) {
	return ParsePriceBounded(text, MinPrice, MaxPrice)
}

// ParsePriceBounded parses a user-entered price with explicit inclusive
// bounds, for callers whose limits are deployment-configured.
func ParsePriceBounded(text string, min, max float64) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(text))
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, errors.New("please enter a valid number for the price")
	}
	price = math.Round(price*100) / 100
	if price < min {
		return 0, fmt.Errorf("price must be at least $%.2f", min)
	}
	if price > max {
		return 0, fmt.Errorf("price cannot exceed $%.2f", max)
	}
	return price, nil
}

func ValidateStatus(status Status) error {
	switch status {
	case StatusActive, StatusSold, StatusReserved, StatusDeleted:
		return nil
	default:
		return errors.New("invalid listing status")
	}
}
