package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	listingapp "github.com/tradepost/tradepost/internal/application/listing"
	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/domain/listing"
)

func (c *Controller) registerListingFlows() {
	c.registerListingCreate()
	c.registerListingEdit()
}

func (c *Controller) registerListingCreate() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindListingCreate,
		Initial: conv.StateTitle,
		Commit:  c.commitListingCreate,
	}, "sell")

	c.registry.RegisterRule(conv.KindListingCreate, conv.StateTitle, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID, "What are you selling? Send a title.", "")
		},
		Validate: func(t *Turn) error {
			return listing.ValidateTitle(strings.TrimSpace(t.Event.Text))
		},
		Apply: func(t *Turn) {
			t.Session.Payload["title"] = strings.TrimSpace(t.Event.Text)
		},
		Next: func(*Turn) conv.State { return conv.StateDescription },
	})

	c.registry.RegisterRule(conv.KindListingCreate, conv.StateDescription, &Rule{
		Skippable: true,
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     "Add a description, or skip.",
				Suggest:     []string{conv.SkipAction},
			}
		},
		Validate: func(t *Turn) error {
			return listing.ValidateDescription(strings.TrimSpace(t.Event.Text))
		},
		Apply: func(t *Turn) {
			t.Session.Payload["description"] = strings.TrimSpace(t.Event.Text)
		},
		Next: func(*Turn) conv.State { return conv.StatePrice },
	})

	c.registry.RegisterRule(conv.KindListingCreate, conv.StatePrice, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID, "What price? (for example 49.99)", "")
		},
		Validate: func(t *Turn) error {
			_, err := listing.ParsePriceBounded(t.Event.Text, c.opts.MinPrice, c.opts.MaxPrice)
			return err
		},
		Apply: func(t *Turn) {
			price, _ := listing.ParsePriceBounded(t.Event.Text, c.opts.MinPrice, c.opts.MaxPrice)
			t.Session.Payload["price"] = price
		},
		Next: func(*Turn) conv.State { return conv.StateCategory },
	})

	c.registry.RegisterRule(conv.KindListingCreate, conv.StateCategory, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     "Pick a category.",
				Suggest:     categorySuggestions(),
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
		Next: func(*Turn) conv.State { return conv.StatePhotos },
	})

	c.registry.RegisterRule(conv.KindListingCreate, conv.StatePhotos, &Rule{
		Skippable: true,
		Prompt: func(t *Turn) conv.Action {
			n := len(t.Session.Payload.Strings("photos"))
			content := fmt.Sprintf("Send up to %d photos, or skip.", c.opts.MaxPhotos)
			if n > 0 {
				content = fmt.Sprintf("Photo added (%d/%d). Send another, or continue.", n, c.opts.MaxPhotos)
			}
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     content,
				Suggest:     []string{conv.SkipAction},
			}
		},
		Apply: func(t *Turn) {
			if t.Event.Input != conv.InputMedia || t.Event.MediaRef == "" {
				return
			}
			photos := t.Session.Payload.Strings("photos")
			if len(photos) >= c.opts.MaxPhotos {
				return
			}
			t.Session.Payload["photos"] = append(photos, t.Event.MediaRef)
		},
		// Any non-photo input moves on. More photos stay here until the
		// cap is hit.
		Next: func(t *Turn) conv.State {
			if t.Event.Input == conv.InputMedia && len(t.Session.Payload.Strings("photos")) < c.opts.MaxPhotos {
				return conv.StatePhotos
			}
			return conv.StateLocation
		},
	})

	c.registry.RegisterRule(conv.KindListingCreate, conv.StateLocation, &Rule{
		Skippable: true,
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     "Where is the item located? Send a location, or skip.",
				Suggest:     []string{conv.SkipAction},
			}
		},
		Apply: func(t *Turn) {
			t.Session.Payload["location"] = strings.TrimSpace(t.Event.Text)
		},
		Next: func(*Turn) conv.State { return conv.StateConfirm },
	})

	c.registry.RegisterRule(conv.KindListingCreate, conv.StateConfirm, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     listingSummary(t.Session.Payload),
				Suggest:     []string{"confirm", conv.CancelAction},
			}
		},
		Validate: func(t *Turn) error {
			if isConfirm(t.Event) || isDecline(t.Event) {
				return nil
			}
			return errors.New("confirm to publish, or cancel")
		},
		Apply: func(t *Turn) {
			t.Session.Payload["confirmed"] = isConfirm(t.Event)
		},
		Next: func(*Turn) conv.State { return conv.StateTerminal },
	})
}

func (c *Controller) commitListingCreate(t *Turn) ([]conv.Action, error) {
	p := t.Session.Payload
	if !p.Bool("confirmed") {
		return []conv.Action{c.say(t.Session.PrincipalID, "Listing discarded.", "")}, nil
	}
	price, _ := p.Float("price")
	l, err := c.listings.Create(t.Ctx, listingapp.CreateInput{
		SellerID:    t.Session.PrincipalID,
		Title:       p.String("title"),
		Description: p.String("description"),
		Price:       price,
		Category:    p.String("category"),
		Location:    p.String("location"),
		Photos:      p.Strings("photos"),
	})
	if err != nil {
		return nil, err
	}
	return []conv.Action{c.say(t.Session.PrincipalID,
		fmt.Sprintf("Listing #%d published: %s for %s.", l.ID, l.Title, formatPrice(l.Price)), "")}, nil
}

// editableFields maps an edit-flow state to the listing field it edits.
// Photo edits are handled separately: they consume media, not text.
var editableFields = map[conv.State]listingapp.Field{
	conv.StateTitle:       listingapp.FieldTitle,
	conv.StateDescription: listingapp.FieldDescription,
	conv.StatePrice:       listingapp.FieldPrice,
	conv.StateCategory:    listingapp.FieldCategory,
	conv.StateLocation:    listingapp.FieldLocation,
}

func (c *Controller) registerListingEdit() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindListingEdit,
		Initial: conv.StateTitle,
		Seed: func(t *Turn, params []string) (conv.State, error) {
			if len(params) != 2 {
				return "", errors.New("choose a listing and a field to edit")
			}
			id, err := strconv.ParseInt(params[0], 10, 64)
			if err != nil {
				return "", errors.New("invalid listing id")
			}
			state := conv.State(params[1])
			if _, ok := editableFields[state]; !ok && state != conv.StatePhotos {
				return "", fmt.Errorf("field %q cannot be edited", params[1])
			}
			t.Session.Payload["listing_id"] = id
			return state, nil
		},
		Commit: c.commitListingEdit,
	}, "edit_listing")

	for state, field := range editableFields {
		field := field
		c.registry.RegisterRule(conv.KindListingEdit, state, &Rule{
			Prompt: func(t *Turn) conv.Action {
				if field == listingapp.FieldCategory {
					return conv.Action{
						PrincipalID: t.Session.PrincipalID,
						Content:     "Pick the new category.",
						Suggest:     categorySuggestions(),
					}
				}
				return c.say(t.Session.PrincipalID, fmt.Sprintf("Send the new %s.", field), "")
			},
			Validate: func(t *Turn) error {
				return c.validateListingField(field, editValue(field, t.Event))
			},
			Apply: func(t *Turn) {
				t.Session.Payload["value"] = editValue(field, t.Event)
			},
			Next: func(*Turn) conv.State { return conv.StateTerminal },
		})
	}

	c.registry.RegisterRule(conv.KindListingEdit, conv.StatePhotos, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID, "Send the new photo.", "")
		},
		Validate: func(t *Turn) error {
			if t.Event.Input != conv.InputMedia || t.Event.MediaRef == "" {
				return errors.New("send a photo")
			}
			return nil
		},
		Apply: func(t *Turn) {
			t.Session.Payload["value"] = t.Event.MediaRef
		},
		Next: func(*Turn) conv.State { return conv.StateTerminal },
	})
}

func editValue(field listingapp.Field, ev conv.Event) string {
	if field == listingapp.FieldCategory {
		return selectedCategory(ev)
	}
	return strings.TrimSpace(ev.Text)
}

func (c *Controller) validateListingField(field listingapp.Field, value string) error {
	switch field {
	case listingapp.FieldTitle:
		return listing.ValidateTitle(value)
	case listingapp.FieldDescription:
		return listing.ValidateDescription(value)
	case listingapp.FieldPrice:
		_, err := listing.ParsePriceBounded(value, c.opts.MinPrice, c.opts.MaxPrice)
		return err
	case listingapp.FieldCategory:
		if !listing.IsCategory(value) {
			return fmt.Errorf("unknown category, pick one of: %s", strings.Join(listing.Categories, ", "))
		}
	}
	return nil
}

func (c *Controller) commitListingEdit(t *Turn) ([]conv.Action, error) {
	id, ok := t.Session.Payload.Int64("listing_id")
	if !ok {
		return nil, errors.New("edit session lost its listing")
	}

	var l *listing.Listing
	var err error
	if t.Session.State == conv.StatePhotos {
		l, err = c.listings.AttachPhoto(t.Ctx, t.Session.PrincipalID, id, t.Session.Payload.String("value"))
	} else {
		field, fieldOK := editableFields[t.Session.State]
		if !fieldOK {
			return nil, fmt.Errorf("field for state %q cannot be edited", t.Session.State)
		}
		l, err = c.listings.UpdateField(t.Ctx, t.Session.PrincipalID, id, field, t.Session.Payload.String("value"))
	}
	if err != nil {
		if errors.Is(err, listingapp.ErrNotOwner) {
			return nil, errors.New("you can only edit your own listings")
		}
		return nil, err
	}
	return []conv.Action{c.say(t.Session.PrincipalID,
		fmt.Sprintf("Listing #%d updated.", l.ID), "")}, nil
}

func selectedCategory(ev conv.Event) string {
	if ev.Input == conv.InputSelection && ev.Action == "category" && len(ev.Params) == 1 {
		return ev.Params[0]
	}
	return strings.ToLower(strings.TrimSpace(ev.Text))
}

// isConfirm accepts only the bare confirm selection. The confirm tag
// carries no parameters, so anything like "confirm:no" is not a yes.
func isConfirm(ev conv.Event) bool {
	if ev.Input == conv.InputSelection {
		return ev.Action == "confirm" && ev.ParamCount(0) == nil
	}
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	return text == "confirm" || text == "yes"
}

// isDecline recognizes an explicit refusal at a confirm step.
func isDecline(ev conv.Event) bool {
	if ev.Input == conv.InputSelection {
		return ev.Action == "confirm" && len(ev.Params) == 1 && ev.Params[0] == "no"
	}
	text := strings.ToLower(strings.TrimSpace(ev.Text))
	return text == "no"
}
