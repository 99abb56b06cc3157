package credits

import (
	"context"
	"fmt"
	"io"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hundredwebs/petimage-backend/internal/users"
	"github.com/hundredwebs/petimage-backend/pkg/db/models"
	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
	"github.com/hundredwebs/petimage-backend/pkg/logger"
)

type testRunner struct {
	db *gorm.DB
}

func (r *testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
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
	if err := conn.AutoMigrate(&models.User{}, &models.Purchase{}, &models.CreditUsage{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:     &testRunner{db: db},
		Repo:   NewRepository(db),
		Users:  users.NewRepository(db),
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func TestService_BalanceByEmail_CreatesAccount(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	balance, err := svc.BalanceByEmail(context.Background(), "new@example.com", "New User")
	if err != nil {
		t.Fatalf("BalanceByEmail error: %v", err)
	}
	if balance.Credits != 0 || balance.TotalCredits != 0 {
		t.Fatalf("fresh account should start empty, got %+v", balance)
	}

	again, err := svc.BalanceByEmail(context.Background(), "new@example.com", "")
	if err != nil {
		t.Fatalf("second read error: %v", err)
	}
	if again.UserID != balance.UserID {
		t.Fatal("repeated reads must resolve to the same account")
	}

	var user models.User
	if err := db.First(&user, "email = ?", "new@example.com").Error; err != nil {
		t.Fatalf("failed to load user: %v", err)
	}
	if user.LastSeenAt == nil {
		t.Fatal("expected last_seen_at to be stamped")
	}
}

func TestService_Spend(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userRepo := users.NewRepository(db)
	user, err := userRepo.ResolveByEmail(ctx, "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if err := userRepo.GrantCredits(ctx, user.ID, 5); err != nil {
		t.Fatalf("failed to seed credits: %v", err)
	}

	balance, err := svc.Spend(ctx, user.ID, SpendInput{
		Credits:  2,
		ImageURL: "https://cdn.example.com/img.png",
		Prompt:   "watercolor corgi",
	})
	if err != nil {
		t.Fatalf("Spend error: %v", err)
	}
	if balance.Credits != 3 {
		t.Fatalf("expected balance 3 after spend, got %d", balance.Credits)
	}
	if balance.TotalCredits != 5 {
		t.Fatalf("spend must not touch lifetime total, got %d", balance.TotalCredits)
	}

	var usage models.CreditUsage
	if err := db.First(&usage, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("failed to load usage: %v", err)
	}
	if usage.CreditsUsed != 2 || usage.Prompt != "watercolor corgi" {
		t.Fatalf("unexpected usage row: %+v", usage)
	}
}

func TestService_Spend_Insufficient(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	userRepo := users.NewRepository(db)
	user, err := userRepo.ResolveByEmail(ctx, "ada@example.com", "")
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if err := userRepo.GrantCredits(ctx, user.ID, 1); err != nil {
		t.Fatalf("failed to seed credits: %v", err)
	}

	_, err = svc.Spend(ctx, user.ID, SpendInput{Credits: 3})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficient {
		t.Fatalf("expected INSUFFICIENT_CREDITS, got %v", err)
	}

	// A failed spend leaves no trace.
	var n int64
	if err := db.Model(&models.CreditUsage{}).Count(&n).Error; err != nil {
		t.Fatalf("failed to count usages: %v", err)
	}
	if n != 0 {
		t.Fatalf("failed spend must not record usage, got %d rows", n)
	}
	reloaded, err := userRepo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if reloaded.Credits != 1 {
		t.Fatalf("failed spend must not change balance, got %d", reloaded.Credits)
	}
}

func TestService_Spend_Validation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	user, err := users.NewRepository(db).ResolveByEmail(context.Background(), "ada@example.com", "")
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	for _, n := range []int{0, -1} {
		if _, err := svc.Spend(context.Background(), user.ID, SpendInput{Credits: n}); err == nil {
			t.Fatalf("expected validation error for %d credits", n)
		}
	}
}

func TestService_History(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	user, err := users.NewRepository(db).ResolveByEmail(ctx, "ada@example.com", "")
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if err := db.Create(&models.Purchase{
		ID:          "ch_hist",
		UserID:      user.ID,
		ProductID:   "prod_basic",
		ProductName: "Basic",
		Credits:     5,
		AmountCents: 449,
		Currency:    "USD",
		Status:      "completed",
	}).Error; err != nil {
		t.Fatalf("failed to seed purchase: %v", err)
	}
	if err := NewRepository(db).RecordUsage(ctx, &models.CreditUsage{
		UserID:      user.ID,
		CreditsUsed: 1,
	}); err != nil {
		t.Fatalf("failed to seed usage: %v", err)
	}

	purchases, usages, err := svc.History(ctx, user.ID)
	if err != nil {
		t.Fatalf("History error: %v", err)
	}
	if len(purchases) != 1 || purchases[0].ID != "ch_hist" || purchases[0].Credits != 5 {
		t.Fatalf("unexpected purchase history: %+v", purchases)
	}
	if len(usages) != 1 || usages[0].CreditsUsed != 1 {
		t.Fatalf("unexpected usage history: %+v", usages)
	}
}
