package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	listingapp "github.com/tradepost/tradepost/internal/application/listing"
	messageapp "github.com/tradepost/tradepost/internal/application/message"
	moderationapp "github.com/tradepost/tradepost/internal/application/moderation"
	"github.com/tradepost/tradepost/internal/application/permission"
	principalapp "github.com/tradepost/tradepost/internal/application/principal"
	conv "github.com/tradepost/tradepost/internal/domain/conversation"
	"github.com/tradepost/tradepost/internal/domain/listing"
	"github.com/tradepost/tradepost/internal/domain/principal"
)

// Options tunes flow behavior. Zero values fall back to the domain
// defaults.
type Options struct {
	MaxPhotos int
	PageSize  int
	MinPrice  float64
	MaxPrice  float64
}

// Controller drives conversations: it resolves each inbound event
// against the principal's live session, runs the state's rule, and
// commits terminal steps through the owning service. Events from the
// same principal are serialized; different principals proceed in
// parallel.
type Controller struct {
	registry   *Registry
	store      conv.Store
	principals *principalapp.Service
	listings   *listingapp.Service
	messages   *messageapp.Service
	moderation *moderationapp.Service
	perms      *permission.Service
	logger     zerolog.Logger
	opts       Options

	// locks holds one mutex per principal seen this process lifetime.
	// Entries are never evicted: eviction races with a goroutine that
	// still holds the mutex, and an idle entry costs a few words.
	locks sync.Map // principal id -> *sync.Mutex
}

// NewController wires the flow registry and returns a ready controller.
func NewController(
	store conv.Store,
	principals *principalapp.Service,
	listings *listingapp.Service,
	messages *messageapp.Service,
	moderation *moderationapp.Service,
	perms *permission.Service,
	opts Options,
	logger zerolog.Logger,
) *Controller {
	if opts.MaxPhotos <= 0 {
		opts.MaxPhotos = listing.MaxPhotos
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}
	if opts.MinPrice <= 0 {
		opts.MinPrice = listing.MinPrice
	}
	if opts.MaxPrice <= 0 {
		opts.MaxPrice = listing.MaxPrice
	}
	c := &Controller{
		registry:   NewRegistry(),
		store:      store,
		principals: principals,
		listings:   listings,
		messages:   messages,
		moderation: moderation,
		perms:      perms,
		opts:       opts,
		logger:     logger.With().Str("service", "conversation").Logger(),
	}
	c.registerListingFlows()
	c.registerSearchFlow()
	c.registerMessageFlow()
	c.registerProfileFlow()
	c.registerAdminFlows()
	return c
}

func (c *Controller) lock(principalID int64) *sync.Mutex {
	mu, _ := c.locks.LoadOrStore(principalID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Handle processes one inbound event and returns the outbound actions.
func (c *Controller) Handle(ctx context.Context, ident principalapp.Identity, ev conv.Event) ([]conv.Action, error) {
	mu := c.lock(ident.ID)
	mu.Lock()
	defer mu.Unlock()

	p, err := c.principals.Ensure(ctx, ident)
	if err != nil {
		return nil, err
	}
	ev.PrincipalID = p.ID

	if !p.Active {
		return []conv.Action{c.say(p.ID, "Your account is suspended.", "error")}, nil
	}

	// Cancel wins over everything, including an in-flight terminal step.
	if ev.IsCancel() {
		if err := c.store.Delete(ctx, p.ID); err != nil {
			c.logger.Warn().Err(err).Int64("principal_id", p.ID).Msg("session delete failed on cancel")
		}
		return []conv.Action{c.say(p.ID, "Operation cancelled.", "")}, nil
	}

	if tag, params, ok := c.startSignal(ev); ok {
		return c.start(ctx, p, ev, tag, params)
	}

	sess, err := c.store.Get(ctx, p.ID)
	if err != nil {
		// Fail open: a broken session store must not take the whole
		// surface down. The event is handled as if no session existed.
		c.logger.Warn().Err(err).Int64("principal_id", p.ID).Msg("session store read failed")
		sess = nil
	}
	if sess == nil {
		return []conv.Action{{
			PrincipalID: p.ID,
			Content:     "Nothing in progress. Pick an action to get started.",
			Suggest:     []string{"sell", "search", "message_seller"},
		}}, nil
	}

	return c.step(ctx, p, ev, sess)
}

// startSignal recognizes flow-start input: a selection whose tag is a
// registered start, or a slash command naming one.
func (c *Controller) startSignal(ev conv.Event) (string, []string, bool) {
	if ev.Input == conv.InputSelection {
		if _, ok := c.registry.Start(ev.Action); ok {
			return ev.Action, ev.Params, true
		}
		return "", nil, false
	}
	if ev.Input == conv.InputText && strings.HasPrefix(strings.TrimSpace(ev.Text), "/") {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(ev.Text), "/"))
		if len(fields) > 0 {
			if _, ok := c.registry.Start(fields[0]); ok {
				return fields[0], fields[1:], true
			}
		}
	}
	return "", nil, false
}

// start opens a fresh session, discarding any previous one.
func (c *Controller) start(ctx context.Context, p *principal.Principal, ev conv.Event, tag string, params []string) ([]conv.Action, error) {
	kind, _ := c.registry.Start(tag)
	spec, err := c.registry.Spec(kind)
	if err != nil {
		return nil, err
	}
	if spec.Admin && !c.perms.IsAdmin(p) {
		c.logger.Warn().Int64("principal_id", p.ID).Str("kind", string(kind)).Msg("admin flow denied")
		return []conv.Action{c.say(p.ID, "You are not authorized to do that.", "error")}, nil
	}

	// The start signal drops whatever was in progress, even when the
	// new flow then fails to seed.
	if err := c.store.Delete(ctx, p.ID); err != nil {
		c.logger.Warn().Err(err).Int64("principal_id", p.ID).Msg("session delete failed on start")
	}

	now := time.Now().UTC()
	sess := &conv.Session{
		PrincipalID: p.ID,
		Kind:        kind,
		State:       spec.Initial,
		Payload:     conv.Payload{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t := &Turn{Ctx: ctx, Principal: p, Event: ev, Session: sess}

	if spec.Seed != nil {
		state, err := spec.Seed(t, params)
		if err != nil {
			return []conv.Action{c.say(p.ID, err.Error(), "error")}, nil
		}
		if state != conv.StateTerminal {
			sess.State = state
		}
	}
	return c.enter(t)
}

// step runs the current state's rule against the event.
func (c *Controller) step(ctx context.Context, p *principal.Principal, ev conv.Event, sess *conv.Session) ([]conv.Action, error) {
	t := &Turn{Ctx: ctx, Principal: p, Event: ev, Session: sess}

	rule, err := c.registry.Rule(sess.Kind, sess.State)
	if err != nil {
		// Wiring defect. Drop the stuck session so the principal is not
		// trapped in a state no rule can leave.
		c.logger.Error().Err(err).
			Int64("principal_id", p.ID).
			Str("kind", string(sess.Kind)).
			Str("state", string(sess.State)).
			Msg("no rule for session state")
		if derr := c.store.Delete(ctx, p.ID); derr != nil {
			c.logger.Warn().Err(derr).Int64("principal_id", p.ID).Msg("session delete failed")
		}
		return nil, err
	}

	if ev.IsSkip() && rule.Skippable {
		// Advance without recording a value.
	} else {
		if rule.Validate != nil {
			if verr := rule.Validate(t); verr != nil {
				actions := []conv.Action{c.say(p.ID, verr.Error(), "error")}
				if rule.Prompt != nil {
					actions = append(actions, rule.Prompt(t))
				}
				return actions, nil
			}
		}
		if rule.Apply != nil {
			rule.Apply(t)
		}
	}

	next := rule.Next(t)
	if next == conv.StateTerminal {
		return c.commit(t)
	}
	sess.State = next
	sess.UpdatedAt = time.Now().UTC()
	return c.enter(t)
}

// enter persists the session at its current state and emits the state's
// prompt, running through any immediate states on the way.
func (c *Controller) enter(t *Turn) ([]conv.Action, error) {
	sess := t.Session
	for {
		rule, err := c.registry.Rule(sess.Kind, sess.State)
		if err != nil {
			c.logger.Error().Err(err).
				Str("kind", string(sess.Kind)).
				Str("state", string(sess.State)).
				Msg("no rule for entered state")
			return nil, err
		}
		if !rule.Immediate {
			if err := c.store.Put(t.Ctx, sess); err != nil {
				c.logger.Error().Err(err).Int64("principal_id", sess.PrincipalID).Msg("session store write failed")
			}
			return []conv.Action{rule.Prompt(t)}, nil
		}
		next := rule.Next(t)
		if next == conv.StateTerminal {
			return c.commit(t)
		}
		sess.State = next
	}
}

// commit runs the kind's terminal effect. Success ends the session.
// Failure keeps it so the step can be retried or cancelled.
func (c *Controller) commit(t *Turn) ([]conv.Action, error) {
	sess := t.Session
	spec, err := c.registry.Spec(sess.Kind)
	if err != nil {
		return nil, err
	}

	actions, err := spec.Commit(t)
	if err != nil {
		if errors.Is(err, moderationapp.ErrForbidden) || errors.Is(err, conv.ErrForbidden) {
			c.logger.Warn().
				Int64("principal_id", sess.PrincipalID).
				Str("kind", string(sess.Kind)).
				Msg("terminal action forbidden")
			return []conv.Action{c.say(sess.PrincipalID, "You do not have permission for that.", "error")}, nil
		}
		c.logger.Error().Err(err).
			Int64("principal_id", sess.PrincipalID).
			Str("kind", string(sess.Kind)).
			Msg("terminal commit failed")
		return []conv.Action{c.say(sess.PrincipalID, err.Error(), "error")}, nil
	}

	if derr := c.store.Delete(t.Ctx, sess.PrincipalID); derr != nil {
		c.logger.Warn().Err(derr).Int64("principal_id", sess.PrincipalID).Msg("session delete failed after commit")
	}
	return actions, nil
}

func (c *Controller) say(principalID int64, content, severity string) conv.Action {
	return conv.Action{PrincipalID: principalID, Content: content, Severity: severity}
}
