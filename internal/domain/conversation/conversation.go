package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names a category of multi-step flow.
type Kind string

const (
	KindListingCreate Kind = "listing-create"
	KindListingEdit   Kind = "listing-edit"
	KindProfileEdit   Kind = "profile-edit"
	KindSearch        Kind = "search"
	KindMessaging     Kind = "messaging"
	KindAdminBlock    Kind = "admin-block"
	KindAdminUnblock  Kind = "admin-unblock"
	KindAdminWarn     Kind = "admin-warn"
	KindAdminFlag     Kind = "admin-flag"
	KindAdminUnflag   Kind = "admin-unflag"
	KindAdminDelete   Kind = "admin-delete"
	KindAdminFilter   Kind = "admin-filter"
)

// IsAdmin reports whether the kind is a moderation flow whose terminal
// mutation must route through the moderation dispatcher.
func (k Kind) IsAdmin() bool {
	switch k {
	case KindAdminBlock, KindAdminUnblock, KindAdminWarn,
		KindAdminFlag, KindAdminUnflag, KindAdminDelete, KindAdminFilter:
		return true
	}
	return false
}

// State identifies one step within a kind. The empty state is terminal.
type State string

const StateTerminal State = ""

// Listing creation states.
const (
	StateTitle       State = "title"
	StateDescription State = "description"
	StatePrice       State = "price"
	StateCategory    State = "category"
	StatePhotos      State = "photos"
	StateLocation    State = "location"
	StateConfirm     State = "confirm"
)

// Search states.
const (
	StateKeyword  State = "keyword"
	StateMinPrice State = "min-price"
	StateMaxPrice State = "max-price"
	StateExecute  State = "execute"
)

// Profile states reuse the field name: phone, location, bio.
const (
	StatePhone State = "phone"
	StateBio   State = "bio"
)

// Messaging states.
const (
	StateRecipient State = "recipient"
	StateBody      State = "body"
)

// Admin flow states.
const (
	StateTarget     State = "target"
	StateReason     State = "reason"
	StateSeverity   State = "severity"
	StateName       State = "name"
	StateExpression State = "expression"
)

// InputKind distinguishes inbound event payloads.
type InputKind string

const (
	InputText      InputKind = "text"
	InputSelection InputKind = "selection"
	InputMedia     InputKind = "media"
)

// Event is one inbound update from the transport layer.
type Event struct {
	PrincipalID int64     `json:"principalId"`
	Input       InputKind `json:"input"`
	Text        string    `json:"text,omitempty"`
	Action      string    `json:"action,omitempty"`
	Params      []string  `json:"params,omitempty"`
	MediaRef    string    `json:"mediaRef,omitempty"`
}

// CancelAction is the distinguished cancel signal, valid from any state.
const CancelAction = "cancel"

// SkipAction advances a skippable state without setting its payload key.
const SkipAction = "skip"

// IsCancel reports whether the event is the cancel signal.
func (e Event) IsCancel() bool {
	if e.Input == InputSelection && e.Action == CancelAction {
		return true
	}
	return e.Input == InputText && strings.TrimSpace(e.Text) == "/cancel"
}

// IsSkip reports whether the event is the explicit skip signal.
func (e Event) IsSkip() bool {
	if e.Input == InputSelection && e.Action == SkipAction {
		return true
	}
	return e.Input == InputText && strings.EqualFold(strings.TrimSpace(e.Text), "skip")
}

// ParseSelection splits callback data of the form "tag", "tag:id" or
// "tag:param1:param2" into its action tag and parameters.
func ParseSelection(data string) (string, []string) {
	parts := strings.Split(data, ":")
	if len(parts) == 1 {
		return parts[0], nil
	}
	return parts[0], parts[1:]
}

// ParamCount validates that a selection carries exactly the expected number
// of parameters. Parameter count and position are fixed per action tag.
func (e Event) ParamCount(want int) error {
	if len(e.Params) != want {
		return fmt.Errorf("action %q expects %d parameter(s), got %d", e.Action, want, len(e.Params))
	}
	return nil
}

// Action is one outbound instruction for the transport layer. Rendering
// and keyboard construction happen outside the core.
type Action struct {
	PrincipalID int64    `json:"principalId"`
	Content     string   `json:"content"`
	Suggest     []string `json:"suggest,omitempty"`
	Severity    string   `json:"severity,omitempty"`
}

// Payload accumulates validated step values. Values survive a JSON
// round-trip through the session store, so accessors tolerate both the
// original Go types and their decoded forms.
type Payload map[string]any

// Clone returns a shallow copy; photo slices are copied.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		if vs, ok := v.([]string); ok {
			out[k] = append([]string(nil), vs...)
			continue
		}
		out[k] = v
	}
	return out
}

func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns a boolean value, false when absent or not a bool.
func (p Payload) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (p Payload) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (p Payload) Int64(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Strings returns a string-slice value, tolerating the []any form JSON
// decoding produces.
func (p Payload) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Session is the live state of one principal's in-progress interaction.
// At most one session exists per principal at any time.
type Session struct {
	PrincipalID int64     `json:"principalId"`
	Kind        Kind      `json:"kind"`
	State       State     `json:"state"`
	Payload     Payload   `json:"payload"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store holds sessions keyed by principal. Put overwrites any existing
// session for the principal, enforcing at-most-one-live-session.
type Store interface {
	Get(ctx context.Context, principalID int64) (*Session, error)
	Put(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, principalID int64) error
}

// ErrUnknownState marks a (kind, state) pair with no registered rule.
// This is a programming-time invariant violation, never a user error.
var ErrUnknownState = errors.New("no rule registered for conversation state")

// ErrForbidden marks a permission-denied moderation mutation.
var ErrForbidden = errors.New("forbidden")

// ErrStorage marks an external data store failure; the session is
// preserved so the terminal step can be retried.
var ErrStorage = errors.New("storage failure")
