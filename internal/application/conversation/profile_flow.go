package conversation

import (
	"errors"
	"fmt"
	"strings"

	principalapp "github.com/tradepost/tradepost/internal/application/principal"
	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/domain/principal"
)

// profileFields maps a profile-edit state to the field it edits.
var profileFields = map[conv.State]principalapp.ProfileField{
	conv.StatePhone:    principalapp.FieldPhone,
	conv.StateLocation: principalapp.FieldLocation,
	conv.StateBio:      principalapp.FieldBio,
}

func (c *Controller) registerProfileFlow() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindProfileEdit,
		Initial: conv.StatePhone,
		Seed: func(t *Turn, params []string) (conv.State, error) {
			if len(params) != 1 {
				return "", errors.New("choose a profile field to edit")
			}
			state := conv.State(params[0])
			if _, ok := profileFields[state]; !ok {
				return "", fmt.Errorf("field %q cannot be edited", params[0])
			}
			return state, nil
		},
		Commit: c.commitProfileEdit,
	}, "edit_profile")

	for state, field := range profileFields {
		field := field
		c.registry.RegisterRule(conv.KindProfileEdit, state, &Rule{
			Prompt: func(t *Turn) conv.Action {
				return c.say(t.Session.PrincipalID, fmt.Sprintf("Send your new %s.", field), "")
			},
			Validate: func(t *Turn) error {
				return validateProfileField(field, strings.TrimSpace(t.Event.Text))
			},
			Apply: func(t *Turn) {
				t.Session.Payload["value"] = strings.TrimSpace(t.Event.Text)
			},
			Next: func(*Turn) conv.State { return conv.StateTerminal },
		})
	}
}

func validateProfileField(field principalapp.ProfileField, value string) error {
	switch field {
	case principalapp.FieldPhone:
		return principal.ValidatePhone(value)
	case principalapp.FieldBio:
		return principal.ValidateBio(value)
	}
	return nil
}

func (c *Controller) commitProfileEdit(t *Turn) ([]conv.Action, error) {
	field, ok := profileFields[t.Session.State]
	if !ok {
		return nil, fmt.Errorf("field for state %q cannot be edited", t.Session.State)
	}
	if _, err := c.principals.UpdateProfileField(t.Ctx, t.Session.PrincipalID, field, t.Session.Payload.String("value")); err != nil {
		return nil, err
	}
	return []conv.Action{c.say(t.Session.PrincipalID,
		fmt.Sprintf("Your %s has been updated.", field), "")}, nil
}
