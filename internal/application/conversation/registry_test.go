package conversation

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	conv "github.com/tradepost/tradepost/internal/domain/conversation"
)

func TestRegistryUnknownStateIsSentinel(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterKind(&KindSpec{Kind: conv.KindSearch, Initial: conv.StateKeyword}, "search")
	reg.RegisterRule(conv.KindSearch, conv.StateKeyword, &Rule{})

	if _, err := reg.Rule(conv.KindSearch, conv.State("nope")); !errors.Is(err, conv.ErrUnknownState) {
		t.Fatalf("expected ErrUnknownState, got %v", err)
	}
	if _, err := reg.Rule(conv.KindMessaging, conv.StateBody); !errors.Is(err, conv.ErrUnknownState) {
		t.Fatalf("expected ErrUnknownState for unregistered kind, got %v", err)
	}
	if _, err := reg.Rule(conv.KindSearch, conv.StateKeyword); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistryStartTags(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterKind(&KindSpec{Kind: conv.KindMessaging, Initial: conv.StateRecipient}, "message_seller", "contact_seller")

	if kind, ok := reg.Start("contact_seller"); !ok || kind != conv.KindMessaging {
		t.Fatalf("expected messaging kind, got %q (%v)", kind, ok)
	}
	if _, ok := reg.Start("unknown"); ok {
		t.Fatal("unexpected start resolution")
	}
}

func TestEveryRegisteredFlowIsFullyWired(t *testing.T) {
	c := NewController(nil, nil, nil, nil, nil, nil, Options{}, zerolog.Nop())

	for kind, states := range c.registry.rules {
		spec, err := c.registry.Spec(kind)
		if err != nil {
			t.Fatalf("kind %q has rules but no spec: %v", kind, err)
		}
		if spec.Commit == nil {
			t.Fatalf("kind %q has no commit", kind)
		}
		if _, ok := states[spec.Initial]; !ok {
			t.Fatalf("kind %q initial state %q has no rule", kind, spec.Initial)
		}
	}
	for tag, kind := range c.registry.starts {
		if _, err := c.registry.Spec(kind); err != nil {
			t.Fatalf("start tag %q points at unregistered kind %q", tag, kind)
		}
	}
}
