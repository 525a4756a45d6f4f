package domain

import "fmt"

type AccountStatus string

const (
	AccountPending    AccountStatus = "pending"
	AccountRestricted AccountStatus = "restricted"
	AccountEnabled    AccountStatus = "enabled"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountPending, AccountRestricted, AccountEnabled:
		return true
	}
	return false
}

// AccountStatusFor derives the stored status from the provider's charges flag.
func AccountStatusFor(chargesEnabled bool) AccountStatus {
	if chargesEnabled {
		return AccountEnabled
	}
	return AccountRestricted
}

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
)

func (s OrderStatus) Valid() bool {
	return s == OrderPending || s == OrderPaid
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentUnpaid || s == PaymentPaid
}

type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "pending"
	FulfillmentFulfilled FulfillmentStatus = "fulfilled"
)

func (s FulfillmentStatus) Valid() bool {
	return s == FulfillmentPending || s == FulfillmentFulfilled
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionSucceeded TransactionStatus = "succeeded"
	TransactionFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionSucceeded, TransactionFailed:
		return true
	}
	return false
}

// TransitionSources lists the statuses a transaction may hold for a move to
// target to apply. The target itself is included so that redelivered events
// are no-ops rather than errors. Succeeded is terminal.
func TransitionSources(target TransactionStatus) []TransactionStatus {
	switch target {
	case TransactionSucceeded:
		return []TransactionStatus{TransactionPending, TransactionFailed, TransactionSucceeded}
	case TransactionFailed:
		return []TransactionStatus{TransactionPending, TransactionFailed}
	case TransactionPending:
		return []TransactionStatus{TransactionPending, TransactionFailed}
	}
	return nil
}

// CanTransition reports whether a transaction in from may move to to.
func CanTransition(from, to TransactionStatus) bool {
	for _, s := range TransitionSources(to) {
		if s == from {
			return true
		}
	}
	return false
}

func ParseAccountStatus(v string) (AccountStatus, error) {
	s := AccountStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid account status %q", v)
	}
	return s, nil
}

func ParseTransactionStatus(v string) (TransactionStatus, error) {
	s := TransactionStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid transaction status %q", v)
	}
	return s, nil
}
