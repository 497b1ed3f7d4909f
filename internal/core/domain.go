package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// DefaultCurrency is used for wallets without a currency and for
// transactions that are not attached to a live wallet.
const DefaultCurrency = "IDR"

// maxTitleLength counts runes, like the request validator's max tag.
const maxTitleLength = 200

type (
	CategoryType string

	Profile struct {
		ID     int64
		Name   string
		Email  string
		Avatar string
	}

	// Wallet holds a cached balance. Balance equals OpeningBalance plus the
	// sum of the wallet's transactions unless it was overwritten through
	// UpdateWallet, which is a manual correction and not a ledger event.
	Wallet struct {
		ID             int64
		ProfileID      int64
		Name           string
		Currency       string
		Balance        Money
		OpeningBalance Money
		Kind           string // bank, ewallet, cash
		Number         string // masked account number
		Color          string
	}

	Category struct {
		ID   int64
		Name string
		Icon string
		Type CategoryType
	}

	// Transaction is a ledger entry. Amount is signed: positive is income,
	// negative is expense. WalletID is nil for entries that touch no balance.
	Transaction struct {
		ID        int64
		ProfileID int64
		Title     string
		Amount    Money
		Category  string
		WalletID  *int64
		Date      time.Time
	}

	// NewTransaction is the validated input of RecordTransaction. The sign of
	// Amount is ignored; it is derived from the category type.
	NewTransaction struct {
		ID       int64 // zero means "assign one"
		Title    string
		Amount   decimal.Decimal
		Category string
		WalletID *int64
		Date     time.Time
	}

	// DeletionResult distinguishes a removed row from an already-absent one.
	// Both are successful outcomes.
	DeletionResult struct {
		Deleted     bool
		Transaction *Transaction
	}

	// WalletUpdate overwrites name and/or balance. A nil field is left as is.
	WalletUpdate struct {
		ID      int64
		Name    *string
		Balance *decimal.Decimal
	}
)

func (t CategoryType) Valid() bool {
	return t == CategoryIncome || t == CategoryExpense
}

// Validate checks the caller-supplied fields. It never touches the store.
func (n NewTransaction) Validate() error {
	if n.ID < 0 {
		return NewValidationError("id", "must be positive")
	}
	title := strings.TrimSpace(n.Title)
	if title == "" {
		return NewValidationError("title", "must not be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return NewValidationError("title", "too long (max 200 characters)")
	}
	amount, err := MoneyFromDecimal(n.Amount)
	if err != nil {
		return NewValidationError("amount", err.Error())
	}
	if amount.IsZero() {
		return NewValidationError("amount", "must not be zero")
	}
	if strings.TrimSpace(n.Category) == "" {
		return NewValidationError("category", "must not be empty")
	}
	if n.WalletID != nil && *n.WalletID <= 0 {
		return NewValidationError("walletId", "must be positive")
	}
	return nil
}

// SignedAmount applies the category's sign to the magnitude of amount:
// income is positive, expense is negative, whatever the caller sent.
func SignedAmount(amount Money, t CategoryType) Money {
	abs := amount.Abs()
	if t == CategoryIncome {
		return abs
	}
	return abs.Neg()
}

func (u WalletUpdate) Validate() error {
	if u.ID <= 0 {
		return NewValidationError("id", "must be positive")
	}
	if u.Name == nil && u.Balance == nil {
		return NewValidationError("name", "name or balance is required")
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return NewValidationError("name", "must not be empty")
		}
		if utf8.RuneCountInString(name) > maxTitleLength {
			return NewValidationError("name", "too long (max 200 characters)")
		}
	}
	if u.Balance != nil {
		if _, err := MoneyFromDecimal(*u.Balance); err != nil {
			return NewValidationError("balance", err.Error())
		}
	}
	return nil
}

// WalletCurrency returns the wallet's currency, falling back to the default.
func (w Wallet) WalletCurrency() string {
	if strings.TrimSpace(w.Currency) == "" {
		return DefaultCurrency
	}
	return w.Currency
}
