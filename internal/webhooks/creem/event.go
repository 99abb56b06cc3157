package creemwebhook

import (
	"encoding/json"

	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
)

// Kind is the canonical event classification the reconciler understands.
type Kind string

const (
	KindPurchaseCompleted     Kind = "purchase_completed"
	KindSubscriptionActivated Kind = "subscription_activated"
	KindSubscriptionCancelled Kind = "subscription_cancelled"
	KindUnrecognized          Kind = "unrecognized"
)

// Event is a provider delivery normalized into the fields the ledger needs.
type Event struct {
	// ID is the provider's delivery id when present. See Key.
	ID   string
	Type string
	Kind Kind
	// ObjectID is the checkout id for purchases and the subscription id for
	// subscription events.
	ObjectID      string
	ProductID     string
	CustomerID    string
	CustomerEmail string
	CustomerName  string
	TransactionID string
	AmountCents   int
}

// Key returns the idempotency key for the delivery. Deliveries without a
// top-level id fall back to the classified kind plus object id, which
// collapses redeliveries of the same notification just the same.
func (e *Event) Key() string {
	if e.ID != "" {
		return e.ID
	}
	if e.ObjectID == "" {
		return ""
	}
	return string(e.Kind) + ":" + e.ObjectID
}

type envelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Object    json.RawMessage `json:"object"`
}

type objectPayload struct {
	ID       string          `json:"id"`
	Customer json.RawMessage `json:"customer"`
	Product  json.RawMessage `json:"product"`
	Order    *orderPayload   `json:"order"`
}

type customerPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type productPayload struct {
	ID    string `json:"id"`
	Price int    `json:"price"`
}

type orderPayload struct {
	Transaction string `json:"transaction"`
	Amount      int    `json:"amount"`
}

func classify(eventType string) Kind {
	switch eventType {
	case "checkout.completed":
		return KindPurchaseCompleted
	case "subscription.active", "subscription.paid":
		return KindSubscriptionActivated
	case "subscription.canceled", "subscription.expired":
		return KindSubscriptionCancelled
	default:
		return KindUnrecognized
	}
}

// ParseEvent decodes a raw webhook body into a normalized Event. The payload
// usually nests under "object", but some deliveries flatten it to the root;
// both layouts parse the same. Unrecognized event types still parse, with
// Kind set to KindUnrecognized.
func ParseEvent(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook body")
	}
	if env.EventType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook body has no eventType")
	}

	raw := env.Object
	if len(raw) == 0 {
		raw = body
	}
	var obj objectPayload
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed event object")
	}

	event := &Event{
		ID:       env.ID,
		Type:     env.EventType,
		Kind:     classify(env.EventType),
		ObjectID: obj.ID,
	}
	// The flattened layout makes the envelope id double as the object id.
	if len(env.Object) == 0 && event.ObjectID == event.ID {
		event.ID = ""
	}

	customer, err := decodeCustomer(obj.Customer)
	if err != nil {
		return nil, err
	}
	event.CustomerID = customer.ID
	event.CustomerEmail = customer.Email
	event.CustomerName = customer.Name

	product, err := decodeProduct(obj.Product)
	if err != nil {
		return nil, err
	}
	event.ProductID = product.ID
	event.AmountCents = product.Price

	if obj.Order != nil {
		event.TransactionID = obj.Order.Transaction
		if obj.Order.Amount > 0 {
			event.AmountCents = obj.Order.Amount
		}
	}
	return event, nil
}

// decodeCustomer tolerates both an expanded customer object and a bare id
// string.
func decodeCustomer(raw json.RawMessage) (customerPayload, error) {
	var customer customerPayload
	if len(raw) == 0 {
		return customer, nil
	}
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &customer.ID); err != nil {
			return customer, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed customer reference")
		}
		return customer, nil
	}
	if err := json.Unmarshal(raw, &customer); err != nil {
		return customer, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed customer object")
	}
	return customer, nil
}

// decodeProduct tolerates both an expanded product object and a bare id
// string.
func decodeProduct(raw json.RawMessage) (productPayload, error) {
	var product productPayload
	if len(raw) == 0 {
		return product, nil
	}
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &product.ID); err != nil {
			return product, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed product reference")
		}
		return product, nil
	}
	if err := json.Unmarshal(raw, &product); err != nil {
		return product, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed product object")
	}
	return product, nil
}
