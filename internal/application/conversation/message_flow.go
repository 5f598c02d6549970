package conversation

import (
	"errors"
	"strconv"
	"strings"

	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/domain/message"
)

func (c *Controller) registerMessageFlow() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindMessaging,
		Initial: conv.StateRecipient,
		// "contact_seller:<listingID>" skips straight to composing.
		Seed: func(t *Turn, params []string) (conv.State, error) {
			if len(params) == 0 {
				return conv.StateRecipient, nil
			}
			id, err := strconv.ParseInt(params[0], 10, 64)
			if err != nil {
				return "", errors.New("invalid listing id")
			}
			t.Session.Payload["listing_id"] = id
			return conv.StateBody, nil
		},
		Commit: c.commitMessage,
	}, "message_seller", "contact_seller")

	c.registry.RegisterRule(conv.KindMessaging, conv.StateRecipient, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID, "Which listing is this about? Send its number.", "")
		},
		Validate: func(t *Turn) error {
			_, err := eventListingID(t.Event)
			return err
		},
		Apply: func(t *Turn) {
			id, _ := eventListingID(t.Event)
			t.Session.Payload["listing_id"] = id
		},
		Next: func(*Turn) conv.State { return conv.StateBody },
	})

	c.registry.RegisterRule(conv.KindMessaging, conv.StateBody, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID, "Write your message to the seller.", "")
		},
		Validate: func(t *Turn) error {
			return message.ValidateBody(t.Event.Text)
		},
		Apply: func(t *Turn) {
			t.Session.Payload["body"] = strings.TrimSpace(t.Event.Text)
		},
		Next: func(*Turn) conv.State { return conv.StateTerminal },
	})
}

func (c *Controller) commitMessage(t *Turn) ([]conv.Action, error) {
	listingID, ok := t.Session.Payload.Int64("listing_id")
	if !ok {
		return nil, errors.New("message session lost its listing")
	}
	m, err := c.messages.SendToSeller(t.Ctx, t.Session.PrincipalID, listingID, t.Session.Payload.String("body"))
	if err != nil {
		return nil, err
	}
	return []conv.Action{
		c.say(t.Session.PrincipalID, "Message sent to the seller.", ""),
		c.say(m.ReceiverID, "You have a new message about your listing.", ""),
	}, nil
}

func eventListingID(ev conv.Event) (int64, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ev.Text), "#"))
	if ev.Input == conv.InputSelection && len(ev.Params) == 1 {
		raw = ev.Params[0]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("that does not look like a listing number")
	}
	return id, nil
}
