package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketpay-backend/internal/domain"
)

// MemoryStore keeps sellers, orders and transactions in process. A single
// lock serialises writes so upserts behave like the database's.
type MemoryStore struct {
	mu           sync.RWMutex
	sellers      map[string]*domain.Seller
	orders       map[string]*domain.Order
	transactions map[string]*domain.Transaction // by payment intent id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sellers:      make(map[string]*domain.Seller),
		orders:       make(map[string]*domain.Order),
		transactions: make(map[string]*domain.Transaction),
	}
}

func (r *MemoryStore) GetSeller(_ context.Context, id string) (*domain.Seller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sellers[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return copySeller(s), nil
}

func (r *MemoryStore) GetSellerByEmail(_ context.Context, email string) (*domain.Seller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.sellerByEmail(email); s != nil {
		return copySeller(s), nil
	}
	return nil, domain.ErrRecordNotFound
}

func (r *MemoryStore) CreateSeller(_ context.Context, s *domain.Seller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sellerByEmail(s.Email) != nil {
		return domain.ErrDuplicateKey
	}
	r.sellers[s.ID] = copySeller(s)
	return nil
}

func (r *MemoryStore) FindOrCreateSeller(_ context.Context, s *domain.Seller) (*domain.Seller, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.sellerByEmail(s.Email); existing != nil {
		return copySeller(existing), false, nil
	}
	r.sellers[s.ID] = copySeller(s)
	return copySeller(s), true, nil
}

func (r *MemoryStore) SetSellerAccountID(_ context.Context, sellerID, accountID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sellers[sellerID]
	if !ok {
		return "", domain.ErrRecordNotFound
	}
	if s.PaymentAccountID == nil {
		id := accountID
		s.PaymentAccountID = &id
		s.UpdatedAt = time.Now().UTC()
	}
	return *s.PaymentAccountID, nil
}

func (r *MemoryStore) UpdateSellerOnboarding(_ context.Context, sellerID string, completed bool, status domain.AccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sellers[sellerID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	s.OnboardingCompleted = completed
	s.AccountStatus = status
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryStore) UpdateSellerStatusByAccountID(_ context.Context, accountID string, status domain.AccountStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.sellers {
		if s.AccountID() == accountID {
			s.AccountStatus = status
			s.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (r *MemoryStore) CreateOrder(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sellers[o.SellerID]; !ok {
		return domain.ErrRecordNotFound
	}
	if _, ok := r.orders[o.ID]; ok {
		return domain.ErrDuplicateKey
	}
	cp := *o
	cp.Seller = nil
	cp.Transactions = nil
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	r.orders[o.ID] = &cp
	return nil
}

func (r *MemoryStore) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	if s, ok := r.sellers[o.SellerID]; ok {
		cp.Seller = copySeller(s)
	}
	cp.Transactions = []domain.Transaction{}
	for _, t := range r.transactions {
		if t.OrderID == id {
			cp.Transactions = append(cp.Transactions, *t)
		}
	}
	sort.Slice(cp.Transactions, func(i, j int) bool {
		return cp.Transactions[i].CreatedAt.Before(cp.Transactions[j].CreatedAt)
	})
	return &cp, nil
}

func (r *MemoryStore) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus, payment domain.PaymentStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return 0, nil
	}
	o.Status = status
	o.PaymentStatus = payment
	o.UpdatedAt = time.Now().UTC()
	return 1, nil
}

func (r *MemoryStore) FindPendingTransaction(_ context.Context, orderID string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *domain.Transaction
	for _, t := range r.transactions {
		if t.OrderID != orderID || t.Status != domain.TransactionPending {
			continue
		}
		if found == nil || t.UpdatedAt.After(found.UpdatedAt) {
			found = t
		}
	}
	if found == nil {
		return nil, domain.ErrRecordNotFound
	}
	cp := *found
	return &cp, nil
}

func (r *MemoryStore) UpsertTransaction(_ context.Context, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.transactions[t.PaymentIntentID]
	if !ok {
		cp := *t
		r.transactions[t.PaymentIntentID] = &cp
		return nil
	}
	if domain.CanTransition(existing.Status, domain.TransactionPending) {
		existing.Status = domain.TransactionPending
		existing.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *MemoryStore) UpdateTransactionStatus(_ context.Context, paymentIntentID string, status domain.TransactionStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[paymentIntentID]
	if !ok || !domain.CanTransition(t.Status, status) {
		return 0, nil
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return 1, nil
}

// Transactions returns a snapshot of every stored transaction.
func (r *MemoryStore) Transactions() []domain.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Transaction, 0, len(r.transactions))
	for _, t := range r.transactions {
		out = append(out, *t)
	}
	return out
}

func (r *MemoryStore) sellerByEmail(email string) *domain.Seller {
	for _, s := range r.sellers {
		if s.Email == email {
			return s
		}
	}
	return nil
}

func copySeller(s *domain.Seller) *domain.Seller {
	cp := *s
	if s.PaymentAccountID != nil {
		id := *s.PaymentAccountID
		cp.PaymentAccountID = &id
	}
	return &cp
}
