package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"marketpay-backend/internal/domain"
)

// GormStore persists sellers, orders and transactions through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to Postgres through lib/pq and migrates the schema.
func NewPostgresStore(dsn string) (*GormStore, error) {
	return NewGormStore(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}))
}

func NewGormStore(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	r := &GormStore{db: db}
	if err := r.init(); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return r, nil
}

func (r *GormStore) init() error {
	return r.db.AutoMigrate(&domain.Seller{}, &domain.Order{}, &domain.OrderItem{}, &domain.Transaction{})
}

func (r *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *GormStore) GetSeller(ctx context.Context, id string) (*domain.Seller, error) {
	var s domain.Seller
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *GormStore) GetSellerByEmail(ctx context.Context, email string) (*domain.Seller, error) {
	var s domain.Seller
	if err := r.db.WithContext(ctx).First(&s, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *GormStore) CreateSeller(ctx context.Context, s *domain.Seller) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *GormStore) FindOrCreateSeller(ctx context.Context, s *domain.Seller) (*domain.Seller, bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(s)
	if res.Error != nil {
		return nil, false, translate(res.Error)
	}
	var out domain.Seller
	if err := db.First(&out, "email = ?", s.Email).Error; err != nil {
		return nil, false, translate(err)
	}
	return &out, out.ID == s.ID, nil
}

func (r *GormStore) SetSellerAccountID(ctx context.Context, sellerID, accountID string) (string, error) {
	db := r.db.WithContext(ctx)
	err := db.Model(&domain.Seller{}).
		Where("id = ? AND payment_account_id IS NULL", sellerID).
		Updates(map[string]any{"payment_account_id": accountID, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return "", translate(err)
	}
	s, err := r.GetSeller(ctx, sellerID)
	if err != nil {
		return "", err
	}
	return s.AccountID(), nil
}

func (r *GormStore) UpdateSellerOnboarding(ctx context.Context, sellerID string, completed bool, status domain.AccountStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Seller{}).
		Where("id = ?", sellerID).
		Updates(map[string]any{
			"onboarding_completed": completed,
			"account_status":       status,
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *GormStore) UpdateSellerStatusByAccountID(ctx context.Context, accountID string, status domain.AccountStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Seller{}).
		Where("payment_account_id = ?", accountID).
		Updates(map[string]any{"account_status": status, "updated_at": time.Now().UTC()})
	return res.RowsAffected, translate(res.Error)
}

func (r *GormStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	// Create runs the order and its items in one transaction.
	return translate(r.db.WithContext(ctx).Omit("Seller", "Transactions").Create(o).Error)
}

func (r *GormStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Seller").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormStore) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, payment domain.PaymentStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "payment_status": payment, "updated_at": time.Now().UTC()})
	return res.RowsAffected, translate(res.Error)
}

func (r *GormStore) FindPendingTransaction(ctx context.Context, orderID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, domain.TransactionPending).
		Order("updated_at DESC").
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *GormStore) UpsertTransaction(ctx context.Context, t *domain.Transaction) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_intent_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":     domain.TransactionPending,
			"updated_at": time.Now().UTC(),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.IN{Column: clause.Column{Table: "transactions", Name: "status"}, Values: statusValues(domain.TransitionSources(domain.TransactionPending))},
		}},
	}).Create(t).Error
	return translate(err)
}

func (r *GormStore) UpdateTransactionStatus(ctx context.Context, paymentIntentID string, status domain.TransactionStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("payment_intent_id = ? AND status IN ?", paymentIntentID, statusValues(domain.TransitionSources(status))).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	return res.RowsAffected, translate(res.Error)
}

func statusValues(ss []domain.TransactionStatus) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

// uniqueViolation is the Postgres SQLSTATE lib/pq reports for unique index
// conflicts; gorm only translates pgx errors itself.
const uniqueViolation = "23505"

func translate(err error) error {
	var pqErr *pq.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", domain.ErrDuplicateKey, err)
	case errors.As(err, &pqErr) && pqErr.Code == uniqueViolation:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateKey, pqErr.Message)
	}
	return err
}
