package audit

import "testing"

func TestSignAndVerify(t *testing.T) {
	entry, err := NewEntry(Record{
		ActorID:    7,
		Action:     ActionFlagListing,
		TargetType: TargetListing,
		TargetID:   "123",
		Detail:     map[string]any{"reason": "spam"},
	})
	if err != nil {
		t.Fatalf("new entry: %v", err)
	}
	key := []byte("test-key")
	sig, err := Sign(entry, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	entry.Signature = sig

	ok, err := VerifySignature(entry, key)
	if err != nil || !ok {
		t.Fatalf("expected valid signature, got %v %v", ok, err)
	}

	entry.TargetID = "124"
	ok, err = VerifySignature(entry, key)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("tampered entry must fail verification")
	}
}

func TestVerifyMissingSignature(t *testing.T) {
	entry, _ := NewEntry(Record{ActorID: 1, Action: ActionWarnUser, TargetType: TargetUser, TargetID: "2"})
	ok, err := VerifySignature(entry, []byte("k"))
	if err != nil || ok {
		t.Fatalf("unsigned entry must not verify, got %v %v", ok, err)
	}
}

func TestDetermineRiskLevel(t *testing.T) {
	if DetermineRiskLevel(ActionBlockUser) != RiskHigh {
		t.Fatal("block_user is high risk")
	}
	if DetermineRiskLevel(ActionDeleteListing) != RiskHigh {
		t.Fatal("delete_listing is high risk")
	}
	if DetermineRiskLevel(ActionWarnUser) != RiskMedium {
		t.Fatal("warn_user is medium risk")
	}
	if DetermineRiskLevel(ActionBlockUser+DeniedSuffix) != RiskLow {
		t.Fatal("denied attempts are low risk")
	}
}
