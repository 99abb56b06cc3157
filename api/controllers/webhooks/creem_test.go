package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	creemwebhook "github.com/hundredwebs/petimage-backend/internal/webhooks/creem"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/types"
)

const testSecret = "whsec_test"

type fakeWebhookService struct {
	disposition creemwebhook.Disposition
	err         error
	handled     []*creemwebhook.Event
}

func (f *fakeWebhookService) HandleEvent(ctx context.Context, event *creemwebhook.Event) (creemwebhook.Disposition, error) {
	f.handled = append(f.handled, event)
	return f.disposition, f.err
}

type fakeGuard struct {
	seen     map[string]bool
	released []string
	err      error
}

func (f *fakeGuard) CheckAndMark(ctx context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[key] {
		return true, nil
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	f.seen[key] = true
	return false, nil
}

func (f *fakeGuard) Release(ctx context.Context, key string) error {
	f.released = append(f.released, key)
	delete(f.seen, key)
	return nil
}

type fakeSecretClient struct{}

func (fakeSecretClient) SigningSecret() string { return testSecret }

func post(t *testing.T, handler http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/creem", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(creemwebhook.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func validBody() []byte {
	return []byte(`{
		"id": "evt_1",
		"eventType": "checkout.completed",
		"object": {
			"id": "ch_1",
			"customer": {"email": "ada@example.com"},
			"product": {"id": "prod_basic"}
		}
	}`)
}

func TestCreemWebhook_Applies(t *testing.T) {
	svc := &fakeWebhookService{disposition: creemwebhook.DispositionApplied}
	guard := &fakeGuard{}
	handler := CreemWebhook(svc, fakeSecretClient{}, guard, nil, nil)

	body := validBody()
	w := post(t, handler, body, creemwebhook.Sign(testSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.handled) != 1 {
		t.Fatalf("expected one handled event, got %d", len(svc.handled))
	}
	if svc.handled[0].ObjectID != "ch_1" {
		t.Fatalf("unexpected event: %+v", svc.handled[0])
	}
}

func TestCreemWebhook_MissingSignature(t *testing.T) {
	svc := &fakeWebhookService{}
	handler := CreemWebhook(svc, fakeSecretClient{}, &fakeGuard{}, nil, nil)

	w := post(t, handler, validBody(), "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing signature must be 400, got %d", w.Code)
	}
	if len(svc.handled) != 0 {
		t.Fatal("unverified deliveries must not reach the service")
	}
}

func TestCreemWebhook_BadSignature(t *testing.T) {
	svc := &fakeWebhookService{}
	handler := CreemWebhook(svc, fakeSecretClient{}, &fakeGuard{}, nil, nil)

	body := validBody()
	w := post(t, handler, body, creemwebhook.Sign("whsec_wrong", body))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature must be 401, got %d", w.Code)
	}
	if len(svc.handled) != 0 {
		t.Fatal("unverified deliveries must not reach the service")
	}
}

func TestCreemWebhook_MalformedBody(t *testing.T) {
	svc := &fakeWebhookService{}
	handler := CreemWebhook(svc, fakeSecretClient{}, &fakeGuard{}, nil, nil)

	body := []byte(`{"eventType": `)
	w := post(t, handler, body, creemwebhook.Sign(testSecret, body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body must be 400, got %d", w.Code)
	}
}

func TestCreemWebhook_GuardShortCircuitsRedelivery(t *testing.T) {
	svc := &fakeWebhookService{disposition: creemwebhook.DispositionApplied}
	guard := &fakeGuard{}
	handler := CreemWebhook(svc, fakeSecretClient{}, guard, nil, nil)

	body := validBody()
	sig := creemwebhook.Sign(testSecret, body)

	if w := post(t, handler, body, sig); w.Code != http.StatusOK {
		t.Fatalf("first delivery failed: %d", w.Code)
	}
	if w := post(t, handler, body, sig); w.Code != http.StatusOK {
		t.Fatalf("redelivery must still ack: %d", w.Code)
	}
	if len(svc.handled) != 1 {
		t.Fatalf("guard should stop the second delivery, service saw %d", len(svc.handled))
	}
}

func TestCreemWebhook_GuardFailureFailsOpen(t *testing.T) {
	svc := &fakeWebhookService{disposition: creemwebhook.DispositionApplied}
	guard := &fakeGuard{err: errors.New("redis down")}
	handler := CreemWebhook(svc, fakeSecretClient{}, guard, nil, nil)

	body := validBody()
	w := post(t, handler, body, creemwebhook.Sign(testSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("guard outage must not fail the delivery, got %d", w.Code)
	}
	if len(svc.handled) != 1 {
		t.Fatal("delivery should continue to the service when the guard is down")
	}
}

func TestCreemWebhook_ServiceFailureReleasesGuard(t *testing.T) {
	svc := &fakeWebhookService{err: pkgerrors.New(pkgerrors.CodeInternal, "db down")}
	guard := &fakeGuard{}
	handler := CreemWebhook(svc, fakeSecretClient{}, guard, nil, nil)

	body := validBody()
	w := post(t, handler, body, creemwebhook.Sign(testSecret, body))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("transient failures must be 5xx for redelivery, got %d", w.Code)
	}
	if len(guard.released) != 1 {
		t.Fatalf("guard mark must be released on failure, released=%v", guard.released)
	}

	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected error code %s", envelope.Error.Code)
	}
}

func TestCreemWebhook_DroppedStillAcks(t *testing.T) {
	svc := &fakeWebhookService{disposition: creemwebhook.DispositionDropped}
	handler := CreemWebhook(svc, fakeSecretClient{}, &fakeGuard{}, nil, nil)

	body := []byte(`{"id": "evt_9", "eventType": "refund.created", "object": {"id": "ref_1"}}`)
	w := post(t, handler, body, creemwebhook.Sign(testSecret, body))

	if w.Code != http.StatusOK {
		t.Fatalf("dropped events must still ack with 200, got %d", w.Code)
	}
}
