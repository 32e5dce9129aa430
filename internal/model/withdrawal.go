package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the lifecycle state of a withdrawal.
type WithdrawalStatus string

const (
	StatusRequested  WithdrawalStatus = "REQUESTED"
	StatusApproved   WithdrawalStatus = "APPROVED"
	StatusProcessing WithdrawalStatus = "PROCESSING"
	StatusCompleted  WithdrawalStatus = "COMPLETED"
	StatusRejected   WithdrawalStatus = "REJECTED"
	StatusCancelled  WithdrawalStatus = "CANCELLED"
	StatusFailed     WithdrawalStatus = "FAILED"
)

// ActiveStatuses are the statuses that consume policy limits: anything that
// has not ended in rejection, cancellation or failure.
var ActiveStatuses = []WithdrawalStatus{
	StatusRequested,
	StatusApproved,
	StatusProcessing,
	StatusCompleted,
}

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusApproved, StatusProcessing, StatusCompleted,
		StatusRejected, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s WithdrawalStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// lifecycle lists the legal edges out of every non-terminal status.
var lifecycle = map[WithdrawalStatus][]WithdrawalStatus{
	StatusRequested:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:   {StatusProcessing, StatusRejected},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether from -> to is an edge of the withdrawal lifecycle.
func CanTransition(from, to WithdrawalStatus) bool {
	if from.Terminal() || !to.Valid() {
		return false
	}
	for _, next := range lifecycle[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Withdrawal 提现记录. Owned by the lifecycle service; the risk engine only reads it.
type Withdrawal struct {
	ID              string           `json:"id" gorm:"primaryKey;type:text"`
	UserID          string           `json:"user_id" gorm:"type:text;not null;index:idx_withdrawals_user_requested,priority:1"`
	WalletID        string           `json:"wallet_id" gorm:"type:text"`
	Amount          decimal.Decimal  `json:"amount" gorm:"type:numeric(20,2);not null"`
	Currency        string           `json:"currency" gorm:"type:varchar(8);not null"`
	Status          WithdrawalStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	BankAccountRef  string           `json:"bank_account_ref,omitempty" gorm:"type:text"` // destination account, masked upstream
	RejectionReason string           `json:"rejection_reason,omitempty" gorm:"type:text"`
	FailureReason   string           `json:"failure_reason,omitempty" gorm:"type:text"`
	ApprovedBy      string           `json:"approved_by,omitempty" gorm:"type:text"`
	ApprovalReason  string           `json:"approval_reason,omitempty" gorm:"type:text"`

	RequestedAt time.Time  `json:"requested_at" gorm:"not null;index:idx_withdrawals_user_requested,priority:2"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StatusPatch carries the columns written together with a status change.
type StatusPatch struct {
	At              time.Time
	ActorID         string
	Reason          string
	RejectionReason string
	FailureReason   string
}
