package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/domain/moderation"
)

func (c *Controller) registerAdminFlows() {
	c.registerAdminBlock()
	c.registerAdminUnblock()
	c.registerAdminWarn()
	c.registerAdminFlag()
	c.registerAdminUnflag()
	c.registerAdminDelete()
	c.registerAdminFilter()
}

// seedTargetID pre-fills the target from a start parameter, jumping the
// flow past the target prompt.
func seedTargetID(key string, next conv.State) func(*Turn, []string) (conv.State, error) {
	return func(t *Turn, params []string) (conv.State, error) {
		if len(params) == 0 {
			return conv.StateTarget, nil
		}
		id, err := strconv.ParseInt(params[0], 10, 64)
		if err != nil || id <= 0 {
			return "", errors.New("invalid target id")
		}
		t.Session.Payload[key] = id
		return next, nil
	}
}

func (c *Controller) targetRule(key, prompt string, next conv.State) *Rule {
	return &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID, prompt, "")
		},
		Validate: func(t *Turn) error {
			_, err := eventTargetID(t.Event)
			return err
		},
		Apply: func(t *Turn) {
			id, _ := eventTargetID(t.Event)
			t.Session.Payload[key] = id
		},
		Next: func(*Turn) conv.State { return next },
	}
}

func (c *Controller) reasonRule() *Rule {
	return &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID, "What is the reason?", "")
		},
		Validate: func(t *Turn) error {
			if strings.TrimSpace(t.Event.Text) == "" {
				return errors.New("a reason is required")
			}
			return nil
		},
		Apply: func(t *Turn) {
			t.Session.Payload["reason"] = strings.TrimSpace(t.Event.Text)
		},
		Next: func(*Turn) conv.State { return conv.StateTerminal },
	}
}

// executeRule commits without further input, for flows seeded with
// everything they need.
func executeRule() *Rule {
	return &Rule{
		Immediate: true,
		Next:      func(*Turn) conv.State { return conv.StateTerminal },
	}
}

func (c *Controller) registerAdminBlock() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindAdminBlock,
		Initial: conv.StateTarget,
		Admin:   true,
		Seed:    seedTargetID("user_id", conv.StateReason),
		Commit: func(t *Turn) ([]conv.Action, error) {
			id, ok := t.Session.Payload.Int64("user_id")
			if !ok {
				return nil, errors.New("block session lost its target")
			}
			if err := c.moderation.BlockUser(t.Ctx, t.Principal, id, t.Session.Payload.String("reason")); err != nil {
				return nil, err
			}
			return []conv.Action{c.say(t.Session.PrincipalID, fmt.Sprintf("User %d blocked.", id), "")}, nil
		},
	}, "admin_block")

	c.registry.RegisterRule(conv.KindAdminBlock, conv.StateTarget,
		c.targetRule("user_id", "Which user? Send their id.", conv.StateReason))
	c.registry.RegisterRule(conv.KindAdminBlock, conv.StateReason, c.reasonRule())
}

func (c *Controller) registerAdminUnblock() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindAdminUnblock,
		Initial: conv.StateTarget,
		Admin:   true,
		Seed:    seedTargetID("user_id", conv.StateExecute),
		Commit: func(t *Turn) ([]conv.Action, error) {
			id, ok := t.Session.Payload.Int64("user_id")
			if !ok {
				return nil, errors.New("unblock session lost its target")
			}
			if err := c.moderation.UnblockUser(t.Ctx, t.Principal, id); err != nil {
				return nil, err
			}
			return []conv.Action{c.say(t.Session.PrincipalID, fmt.Sprintf("User %d unblocked.", id), "")}, nil
		},
	}, "admin_unblock")

	c.registry.RegisterRule(conv.KindAdminUnblock, conv.StateTarget,
		c.targetRule("user_id", "Which user? Send their id.", conv.StateTerminal))
	c.registry.RegisterRule(conv.KindAdminUnblock, conv.StateExecute, executeRule())
}

func (c *Controller) registerAdminWarn() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindAdminWarn,
		Initial: conv.StateTarget,
		Admin:   true,
		Seed:    seedTargetID("user_id", conv.StateReason),
		Commit: func(t *Turn) ([]conv.Action, error) {
			id, ok := t.Session.Payload.Int64("user_id")
			if !ok {
				return nil, errors.New("warn session lost its target")
			}
			severity := moderation.Severity(t.Session.Payload.String("severity"))
			err := c.moderation.WarnUser(t.Ctx, t.Principal, id, t.Session.Payload.String("reason"), severity, nil)
			if err != nil {
				return nil, err
			}
			return []conv.Action{c.say(t.Session.PrincipalID, fmt.Sprintf("User %d warned.", id), "")}, nil
		},
	}, "admin_warn")

	c.registry.RegisterRule(conv.KindAdminWarn, conv.StateTarget,
		c.targetRule("user_id", "Which user? Send their id.", conv.StateReason))

	reason := c.reasonRule()
	reason.Next = func(*Turn) conv.State { return conv.StateSeverity }
	c.registry.RegisterRule(conv.KindAdminWarn, conv.StateReason, reason)

	c.registry.RegisterRule(conv.KindAdminWarn, conv.StateSeverity, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return conv.Action{
				PrincipalID: t.Session.PrincipalID,
				Content:     "How severe?",
				Suggest:     []string{"severity:low", "severity:medium", "severity:high"},
			}
		},
		Validate: func(t *Turn) error {
			return moderation.ValidateSeverity(selectedSeverity(t.Event))
		},
		Apply: func(t *Turn) {
			t.Session.Payload["severity"] = string(selectedSeverity(t.Event))
		},
		Next: func(*Turn) conv.State { return conv.StateTerminal },
	})
}

func (c *Controller) registerAdminFlag() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindAdminFlag,
		Initial: conv.StateTarget,
		Admin:   true,
		Seed:    seedTargetID("listing_id", conv.StateReason),
		Commit: func(t *Turn) ([]conv.Action, error) {
			id, ok := t.Session.Payload.Int64("listing_id")
			if !ok {
				return nil, errors.New("flag session lost its target")
			}
			if err := c.moderation.FlagListing(t.Ctx, t.Principal, id, t.Session.Payload.String("reason")); err != nil {
				return nil, err
			}
			return []conv.Action{c.say(t.Session.PrincipalID, fmt.Sprintf("Listing #%d flagged.", id), "")}, nil
		},
	}, "admin_flag")

	c.registry.RegisterRule(conv.KindAdminFlag, conv.StateTarget,
		c.targetRule("listing_id", "Which listing? Send its number.", conv.StateReason))
	c.registry.RegisterRule(conv.KindAdminFlag, conv.StateReason, c.reasonRule())
}

func (c *Controller) registerAdminUnflag() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindAdminUnflag,
		Initial: conv.StateTarget,
		Admin:   true,
		Seed:    seedTargetID("listing_id", conv.StateExecute),
		Commit: func(t *Turn) ([]conv.Action, error) {
			id, ok := t.Session.Payload.Int64("listing_id")
			if !ok {
				return nil, errors.New("unflag session lost its target")
			}
			if err := c.moderation.UnflagListing(t.Ctx, t.Principal, id); err != nil {
				return nil, err
			}
			return []conv.Action{c.say(t.Session.PrincipalID, fmt.Sprintf("Listing #%d unflagged.", id), "")}, nil
		},
	}, "admin_unflag")

	c.registry.RegisterRule(conv.KindAdminUnflag, conv.StateTarget,
		c.targetRule("listing_id", "Which listing? Send its number.", conv.StateTerminal))
	c.registry.RegisterRule(conv.KindAdminUnflag, conv.StateExecute, executeRule())
}

func (c *Controller) registerAdminDelete() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindAdminDelete,
		Initial: conv.StateTarget,
		Admin:   true,
		Seed:    seedTargetID("listing_id", conv.StateReason),
		Commit: func(t *Turn) ([]conv.Action, error) {
			id, ok := t.Session.Payload.Int64("listing_id")
			if !ok {
				return nil, errors.New("delete session lost its target")
			}
			if err := c.moderation.DeleteListing(t.Ctx, t.Principal, id, t.Session.Payload.String("reason")); err != nil {
				return nil, err
			}
			return []conv.Action{c.say(t.Session.PrincipalID, fmt.Sprintf("Listing #%d deleted.", id), "")}, nil
		},
	}, "admin_delete")

	c.registry.RegisterRule(conv.KindAdminDelete, conv.StateTarget,
		c.targetRule("listing_id", "Which listing? Send its number.", conv.StateReason))
	c.registry.RegisterRule(conv.KindAdminDelete, conv.StateReason, c.reasonRule())
}

func (c *Controller) registerAdminFilter() {
	c.registry.RegisterKind(&KindSpec{
		Kind:    conv.KindAdminFilter,
		Initial: conv.StateName,
		Admin:   true,
		Commit: func(t *Turn) ([]conv.Action, error) {
			name := t.Session.Payload.String("name")
			expr := t.Session.Payload.String("expression")
			if err := c.moderation.UpsertFilter(t.Ctx, t.Principal, name, expr); err != nil {
				return nil, err
			}
			return []conv.Action{c.say(t.Session.PrincipalID, fmt.Sprintf("Filter %q is active.", name), "")}, nil
		},
	}, "admin_filter")

	c.registry.RegisterRule(conv.KindAdminFilter, conv.StateName, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID, "Name the filter.", "")
		},
		Validate: func(t *Turn) error {
			if strings.TrimSpace(t.Event.Text) == "" {
				return errors.New("a name is required")
			}
			return nil
		},
		Apply: func(t *Turn) {
			t.Session.Payload["name"] = strings.TrimSpace(t.Event.Text)
		},
		Next: func(*Turn) conv.State { return conv.StateExpression },
	})

	c.registry.RegisterRule(conv.KindAdminFilter, conv.StateExpression, &Rule{
		Prompt: func(t *Turn) conv.Action {
			return c.say(t.Session.PrincipalID,
				`Send the rule expression, for example: price > 10000 || category == "other"`, "")
		},
		Validate: func(t *Turn) error {
			rule := moderation.FilterRule{Expression: t.Event.Text}
			return rule.Compile()
		},
		Apply: func(t *Turn) {
			t.Session.Payload["expression"] = strings.TrimSpace(t.Event.Text)
		},
		Next: func(*Turn) conv.State { return conv.StateTerminal },
	})
}

func selectedSeverity(ev conv.Event) moderation.Severity {
	if ev.Input == conv.InputSelection && ev.Action == "severity" && len(ev.Params) == 1 {
		return moderation.Severity(ev.Params[0])
	}
	return moderation.Severity(strings.ToLower(strings.TrimSpace(ev.Text)))
}

func eventTargetID(ev conv.Event) (int64, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ev.Text), "#"))
	if ev.Input == conv.InputSelection && len(ev.Params) == 1 {
		raw = ev.Params[0]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("that does not look like a valid id")
	}
	return id, nil
}
