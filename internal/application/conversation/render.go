package conversation

import (
	"fmt"
	"strings"

	listingapp "github.com/tradepost/tradepost/internal/application/listing"
	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/domain/listing"
)

func formatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}

func categorySuggestions() []string {
	out := make([]string, len(listing.Categories))
	for i, cat := range listing.Categories {
		out[i] = "category:" + cat
	}
	return out
}

// listingSummary renders the confirmation card for a draft listing.
func listingSummary(p conv.Payload) string {
	var b strings.Builder
	b.WriteString("Ready to publish:\n")
	fmt.Fprintf(&b, "Title: %s\n", p.String("title"))
	if desc := p.String("description"); desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	if price, ok := p.Float("price"); ok {
		fmt.Fprintf(&b, "Price: %s\n", formatPrice(price))
	}
	fmt.Fprintf(&b, "Category: %s\n", p.String("category"))
	if loc := p.String("location"); loc != "" {
		fmt.Fprintf(&b, "Location: %s\n", loc)
	}
	fmt.Fprintf(&b, "Photos: %d", len(p.Strings("photos")))
	return b.String()
}

// renderResults renders one page of search results.
func renderResults(result *listingapp.SearchResult) string {
	if result.Total == 0 {
		return "No listings matched your search."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d listing(s):\n", result.Total)
	for _, l := range result.Listings {
		fmt.Fprintf(&b, "#%d %s, %s", l.ID, l.Title, formatPrice(l.Price))
		if l.Location != "" {
			fmt.Fprintf(&b, " (%s)", l.Location)
		}
		b.WriteString("\n")
	}
	if result.Total > len(result.Listings) {
		fmt.Fprintf(&b, "Showing the first %d.", len(result.Listings))
	}
	return strings.TrimRight(b.String(), "\n")
}
