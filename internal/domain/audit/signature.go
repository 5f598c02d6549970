package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"
)

type signaturePayload struct {
	EntryID    string `json:"entryId"`
	ActorID    int64  `json:"actorId"`
	Action     string `json:"action"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Detail     string `json:"detail,omitempty"`
	RiskLevel  string `json:"riskLevel"`
	CreatedAt  string `json:"createdAt"`
}

func buildSignaturePayload(entry *Entry) signaturePayload {
	payload := signaturePayload{
		EntryID:    entry.EntryID.String(),
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		TargetType: string(entry.TargetType),
		TargetID:   entry.TargetID,
		RiskLevel:  string(entry.RiskLevel),
		CreatedAt:  entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if len(entry.Detail) > 0 {
		payload.Detail = base64.StdEncoding.EncodeToString(entry.Detail)
	}
	return payload
}

// Sign generates an HMAC signature for the entry.
func Sign(entry *Entry, key []byte) ([]byte, error) {
	payload := buildSignaturePayload(entry)
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifySignature verifies the HMAC signature for the entry.
func VerifySignature(entry *Entry, key []byte) (bool, error) {
	if len(entry.Signature) == 0 {
		return false, nil
	}
	expected, err := Sign(entry, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, entry.Signature), nil
}
