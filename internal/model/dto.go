package model

import "github.com/shopspring/decimal"

// WithdrawalRequest represents the incoming JSON body of POST /withdrawals.
type WithdrawalRequest struct {
	WalletID       string          `json:"wallet_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency" binding:"required"`
	BankAccountRef string          `json:"bank_account_ref,omitempty"`
}

// SimulateRequest asks for a limit evaluation without creating anything.
type SimulateRequest struct {
	WalletID       string          `json:"wallet_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency" binding:"required"`
	UseRiskContext *bool           `json:"use_risk_context,omitempty"` // default true
}

// TransitionRequest is the admin body for approve/reject/process/complete/fail.
type TransitionRequest struct {
	Reason string `json:"reason"`
}

// PolicyInput is the body for policy create and update.
type PolicyInput struct {
	Name        string      `json:"name" binding:"required"`
	Description string      `json:"description,omitempty"`
	ScopeType   PolicyScope `json:"scope_type" binding:"required"`
	Role        string      `json:"role,omitempty"`
	Currency    string      `json:"currency" binding:"required"`
	Enabled     *bool       `json:"enabled,omitempty"`
	PolicyLimits
}
