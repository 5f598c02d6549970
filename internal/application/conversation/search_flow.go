package conversation

import (
	"fmt"
	"strings"

	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/domain/listing"
)

func (c *Controller) registerSearchFlow() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindSearch,
		Initial: conv.StateKeyword,
		Commit:  c.commitSearch,
	}, "search")

	c.registry.RegisterRule(conv.KindSearch, conv.StateKeyword, &Rule{
		Skippable: true,
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     "What are you looking for? Send a keyword, or skip.",
				Suggest:     []string{conv.SkipAction},
			}
		},
		Apply: func(t *Turn) {
			t.Session.Payload["keyword"] = strings.TrimSpace(t.Event.Text)
		},
		Next: func(*Turn) conv.State { return conv.StateCategory },
	})

	c.registry.RegisterRule(conv.KindSearch, conv.StateCategory, &Rule{
		Skippable: true,
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     "Filter by category, or skip.",
				Suggest:     append(categorySuggestions(), conv.SkipAction),
			}
		},
		Validate: func(t *Turn) error {
			name := selectedCategory(t.Event)
			if !listing.IsCategory(name) {
				return fmt.Errorf("unknown category, pick one of: %s", strings.Join(listing.Categories, ", "))
			}
			return nil
		},
		Apply: func(t *Turn) {
			t.Session.Payload["category"] = selectedCategory(t.Event)
		},
		Next: func(*Turn) conv.State { return conv.StateMinPrice },
	})

	c.registry.RegisterRule(conv.KindSearch, conv.StateMinPrice, &Rule{
		Skippable: true,
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     "Minimum price, or skip.",
				Suggest:     []string{conv.SkipAction},
			}
		},
		Validate: func(t *Turn) error {
			_, err := listing.ParsePriceBounded(t.Event.Text, c.opts.MinPrice, c.opts.MaxPrice)
			return err
		},
		Apply: func(t *Turn) {
			price, _ := listing.ParsePriceBounded(t.Event.Text, c.opts.MinPrice, c.opts.MaxPrice)
			t.Session.Payload["min_price"] = price
		},
		Next: func(*Turn) conv.State { return conv.StateMaxPrice },
	})

	c.registry.RegisterRule(conv.KindSearch, conv.StateMaxPrice, &Rule{
		Skippable: true,
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     "Maximum price, or skip.",
				Suggest:     []string{conv.SkipAction},
			}
		},
		Validate: func(t *Turn) error {
			_, err := listing.ParsePriceBounded(t.Event.Text, c.opts.MinPrice, c.opts.MaxPrice)
			return err
		},
		Apply: func(t *Turn) {
			price, _ := listing.ParsePriceBounded(t.Event.Text, c.opts.MinPrice, c.opts.MaxPrice)
			t.Session.Payload["max_price"] = price
		},
		Next: func(*Turn) conv.State { return conv.StateExecute },
	})

	// Results are shown as soon as the last criterion is in; the
	// principal never has to confirm a search.
	c.registry.RegisterRule(conv.KindSearch, conv.StateExecute, &Rule{
		Immediate: true,
		Next:      func(*Turn) conv.State { return conv.StateTerminal },
	})
}

func (c *Controller) commitSearch(t *Turn) ([]conv.Action, error) {
	p := t.Session.Payload
	filter := listing.Filter{}
	if kw := p.String("keyword"); kw != "" {
		filter.Query = kw
	}
	if cat := p.String("category"); cat != "" {
		filter.Category = cat
	}
	if min, ok := p.Float("min_price"); ok {
		filter.MinPrice = &min
	}
	if max, ok := p.Float("max_price"); ok {
		filter.MaxPrice = &max
	}

	result, err := c.listings.Search(t.Ctx, filter, c.opts.PageSize, 0)
	if err != nil {
		return nil, err
	}
	return []conv.Action{c.say(t.Session.PrincipalID, renderResults(result), "")}, nil
}
