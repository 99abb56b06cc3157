package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hundredwebs/petimage-backend/internal/products"
	"github.com/hundredwebs/petimage-backend/pkg/db/models"
	"github.com/hundredwebs/petimage-backend/pkg/enums"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

type fakeProvider struct {
	cancelled []string
	err       error
}

func (f *fakeProvider) CancelSubscription(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Subscription{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, db *gorm.DB, provider *fakeProvider) *Service {
	t.Helper()
	catalog, err := products.NewCatalogFromProducts([]products.Product{
		{
			ID:         "prod_monthly",
			Name:       "Monthly",
			Credits:    15,
			PriceCents: 1449,
			Currency:   enums.CurrencyUSD,
			Type:       enums.ProductTypeSubscription,
		},
	})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(db),
		Provider: provider,
		Catalog:  catalog,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func seedSubscription(t *testing.T, db *gorm.DB, id string, userID uuid.UUID, status enums.SubscriptionStatus) {
	t.Helper()
	if err := db.Create(&models.Subscription{
		ID:        id,
		UserID:    userID,
		ProductID: "prod_monthly",
		Status:    status,
	}).Error; err != nil {
		t.Fatalf("failed to seed subscription: %v", err)
	}
}

func TestService_List(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeProvider{})
	userID := uuid.New()

	seedSubscription(t, db, "sub_1", userID, enums.SubscriptionStatusActive)
	seedSubscription(t, db, "sub_other", uuid.New(), enums.SubscriptionStatusActive)

	subs, err := svc.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected only the user's subscriptions, got %d", len(subs))
	}
	if subs[0].ID != "sub_1" || subs[0].ProductName != "Monthly" || subs[0].Status != "active" {
		t.Fatalf("unexpected summary: %+v", subs[0])
	}
}

func TestService_Cancel(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{}
	svc := newTestService(t, db, provider)
	userID := uuid.New()

	seedSubscription(t, db, "sub_1", userID, enums.SubscriptionStatusActive)

	summary, err := svc.Cancel(context.Background(), userID, "sub_1")
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if summary.Status != "cancelled" || summary.CancelledAt == nil {
		t.Fatalf("unexpected summary after cancel: %+v", summary)
	}
	if len(provider.cancelled) != 1 || provider.cancelled[0] != "sub_1" {
		t.Fatalf("expected provider cancel call, got %v", provider.cancelled)
	}

	var sub models.Subscription
	if err := db.First(&sub, "id = ?", "sub_1").Error; err != nil {
		t.Fatalf("failed to reload subscription: %v", err)
	}
	if sub.Status != enums.SubscriptionStatusCancelled {
		t.Fatalf("expected cancelled locally, got %s", sub.Status)
	}
}

func TestService_Cancel_OtherUsersSubscription(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{}
	svc := newTestService(t, db, provider)

	seedSubscription(t, db, "sub_1", uuid.New(), enums.SubscriptionStatusActive)

	_, err := svc.Cancel(context.Background(), uuid.New(), "sub_1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign subscription, got %v", err)
	}
	if len(provider.cancelled) != 0 {
		t.Fatal("must not call the provider for a foreign subscription")
	}
}

func TestService_Cancel_AlreadyCancelled(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeProvider{})
	userID := uuid.New()

	seedSubscription(t, db, "sub_1", userID, enums.SubscriptionStatusCancelled)

	_, err := svc.Cancel(context.Background(), userID, "sub_1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT for inactive subscription, got %v", err)
	}
}

func TestService_Cancel_ProviderFailure(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{err: errors.New("provider down")}
	svc := newTestService(t, db, provider)
	userID := uuid.New()

	seedSubscription(t, db, "sub_1", userID, enums.SubscriptionStatusActive)

	_, err := svc.Cancel(context.Background(), userID, "sub_1")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected DEPENDENCY_ERROR, got %v", err)
	}

	// Local state stays active until the provider confirms.
	var sub models.Subscription
	if err := db.First(&sub, "id = ?", "sub_1").Error; err != nil {
		t.Fatalf("failed to reload subscription: %v", err)
	}
	if sub.Status != enums.SubscriptionStatusActive {
		t.Fatalf("expected subscription untouched, got %s", sub.Status)
	}
}
