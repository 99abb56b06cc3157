package creemwebhook

import (
	"testing"
)

func TestParseEvent_NestedObject(t *testing.T) {
	body := []byte(`{
		"id": "evt_1",
		"eventType": "checkout.completed",
		"object": {
			"id": "ch_123",
			"customer": {"id": "cust_1", "email": "ada@example.com", "name": "Ada"},
			"product": {"id": "prod_basic", "price": 449},
			"order": {"transaction": "txn_9", "amount": 449}
		}
	}`)

	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent error: %v", err)
	}
	if event.Kind != KindPurchaseCompleted {
		t.Fatalf("expected purchase kind, got %q", event.Kind)
	}
	if event.ObjectID != "ch_123" || event.ProductID != "prod_basic" {
		t.Fatalf("unexpected ids: %+v", event)
	}
	if event.CustomerEmail != "ada@example.com" || event.CustomerID != "cust_1" {
		t.Fatalf("unexpected customer: %+v", event)
	}
	if event.TransactionID != "txn_9" || event.AmountCents != 449 {
		t.Fatalf("unexpected order data: %+v", event)
	}
	if event.Key() != "evt_1" {
		t.Fatalf("expected delivery id as key, got %q", event.Key())
	}
}

func TestParseEvent_FlattenedObject(t *testing.T) {
	body := []byte(`{
		"id": "sub_1",
		"eventType": "subscription.active",
		"customer": {"email": "ada@example.com"},
		"product": {"id": "prod_monthly"}
	}`)

	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent error: %v", err)
	}
	if event.Kind != KindSubscriptionActivated {
		t.Fatalf("expected activation kind, got %q", event.Kind)
	}
	if event.ObjectID != "sub_1" {
		t.Fatalf("expected root id as object id, got %q", event.ObjectID)
	}
	if event.CustomerEmail != "ada@example.com" || event.ProductID != "prod_monthly" {
		t.Fatalf("unexpected fields: %+v", event)
	}
	if event.Key() != "subscription_activated:sub_1" {
		t.Fatalf("unexpected fallback key: %q", event.Key())
	}
}

func TestParseEvent_StringReferences(t *testing.T) {
	body := []byte(`{
		"id": "evt_2",
		"eventType": "subscription.canceled",
		"object": {
			"id": "sub_1",
			"customer": "cust_1",
			"product": "prod_monthly"
		}
	}`)

	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent error: %v", err)
	}
	if event.Kind != KindSubscriptionCancelled {
		t.Fatalf("expected cancellation kind, got %q", event.Kind)
	}
	if event.CustomerID != "cust_1" || event.CustomerEmail != "" {
		t.Fatalf("unexpected customer: %+v", event)
	}
	if event.ProductID != "prod_monthly" || event.AmountCents != 0 {
		t.Fatalf("unexpected product: %+v", event)
	}
}

func TestParseEvent_OrderAmountWinsOverPrice(t *testing.T) {
	body := []byte(`{
		"eventType": "checkout.completed",
		"object": {
			"id": "ch_1",
			"product": {"id": "prod_basic", "price": 449},
			"order": {"amount": 400}
		}
	}`)

	event, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent error: %v", err)
	}
	if event.AmountCents != 400 {
		t.Fatalf("expected settled order amount, got %d", event.AmountCents)
	}
}

func TestParseEvent_UnrecognizedType(t *testing.T) {
	event, err := ParseEvent([]byte(`{"id": "evt_3", "eventType": "refund.created", "object": {"id": "ref_1"}}`))
	if err != nil {
		t.Fatalf("ParseEvent error: %v", err)
	}
	if event.Kind != KindUnrecognized {
		t.Fatalf("expected unrecognized kind, got %q", event.Kind)
	}
}

func TestParseEvent_Malformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `{"eventType": `},
		{"missing event type", `{"id": "evt_1", "object": {}}`},
		{"bad object", `{"eventType": "checkout.completed", "object": 42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseEvent([]byte(tc.body)); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"checkout.completed":   KindPurchaseCompleted,
		"subscription.active":  KindSubscriptionActivated,
		"subscription.paid":    KindSubscriptionActivated,
		"subscription.canceled": KindSubscriptionCancelled,
		"subscription.expired": KindSubscriptionCancelled,
		"checkout.created":     KindUnrecognized,
		"":                     KindUnrecognized,
	}
	for eventType, want := range cases {
		if got := classify(eventType); got != want {
			t.Errorf("classify(%q) = %q, want %q", eventType, got, want)
		}
	}
}
