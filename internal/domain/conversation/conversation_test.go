package conversation

import (
	"encoding/json"
	"testing"
)

func TestParseSelection(t *testing.T) {
	tag, params := ParseSelection("admin_block:42")
	if tag != "admin_block" || len(params) != 1 || params[0] != "42" {
		t.Fatalf("unexpected parse: %s %v", tag, params)
	}
	tag, params = ParseSelection("search")
	if tag != "search" || params != nil {
		t.Fatalf("unexpected parse: %s %v", tag, params)
	}
	tag, params = ParseSelection("page:3:desc")
	if tag != "page" || len(params) != 2 {
		t.Fatalf("unexpected parse: %s %v", tag, params)
	}
}

func TestEventSignals(t *testing.T) {
	if !(Event{Input: InputSelection, Action: CancelAction}).IsCancel() {
		t.Fatal("selection cancel not recognized")
	}
	if !(Event{Input: InputText, Text: " /cancel "}).IsCancel() {
		t.Fatal("text cancel not recognized")
	}
	if (Event{Input: InputText, Text: "cancel my order"}).IsCancel() {
		t.Fatal("free text must not cancel")
	}
	if !(Event{Input: InputText, Text: "Skip"}).IsSkip() {
		t.Fatal("text skip not recognized")
	}
}

func TestParamCount(t *testing.T) {
	ev := Event{Input: InputSelection, Action: "admin_warn", Params: []string{"7"}}
	if err := ev.ParamCount(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ev.ParamCount(2); err == nil {
		t.Fatal("expected parameter count mismatch")
	}
}

func TestPayloadSurvivesJSONRoundTrip(t *testing.T) {
	p := Payload{
		"title":  "iPhone 14",
		"price":  49.99,
		"photos": []string{"f1", "f2"},
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Payload
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.String("title") != "iPhone 14" {
		t.Fatalf("title lost: %v", decoded["title"])
	}
	if price, ok := decoded.Float("price"); !ok || price != 49.99 {
		t.Fatalf("price lost: %v", decoded["price"])
	}
	photos := decoded.Strings("photos")
	if len(photos) != 2 || photos[0] != "f1" {
		t.Fatalf("photos lost: %v", photos)
	}
}

func TestPayloadClone(t *testing.T) {
	p := Payload{"photos": []string{"a"}}
	c := p.Clone()
	c["photos"] = append(c.Strings("photos"), "b")
	if len(p.Strings("photos")) != 1 {
		t.Fatal("clone must not share photo slice")
	}
}
