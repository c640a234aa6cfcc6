package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryBuying  Category = "buying"
	CategorySelling Category = "selling"
	// Legacy categories still present in older rows.
	CategoryIncome  Category = "income"
	CategoryOutcome Category = "outcome"

	TypeIncome  TransactionType = "income"
	TypeOutcome TransactionType = "outcome"

	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	PaymentCash PaymentMethod = "cash"
	PaymentQRIS PaymentMethod = "qris"

	PlatformOffline Platform = "offline"
	PlatformGojek   Platform = "gojek"
	PlatformGrab    Platform = "grab"
	PlatformShopee  Platform = "shopee"
	// PlatformNone is the filter sentinel that selects rows without a platform.
	PlatformNone Platform = "null"

	RoleAdmin = "admin"
)

type (
	Category        string
	TransactionType string
	Status          string
	PaymentMethod   string
	Platform        string

	// Money is a whole Rupiah amount.
	Money struct {
		Rupiah int64
	}

	// CashEntry is one immutable snapshot of cash-on-hand after an event.
	CashEntry struct {
		ID          int64
		Nominal     Money // balance after the event, not a delta
		Description string
		UpdatedAt   time.Time
	}

	Transaction struct {
		ID            string
		OrderID       *string
		UserID        string
		Amount        Money
		Status        Status
		Category      Category
		Type          TransactionType
		Description   string
		PaymentMethod PaymentMethod
		Platform      Platform // empty when absent
		CreatedAt     time.Time
	}

	Product struct {
		ID          string
		Name        string
		Description string
		InStock     int64
		Category    string
		Price       Money
		UserID      string
		Image       string
	}

	Order struct {
		ID          string
		ProductID   string
		UserID      string
		Status      string
		TotalAmount Money
		CreatedAt   time.Time
	}

	Notification struct {
		ID          string
		Title       string
		Description string
		IsRead      bool
		CreatedAt   time.Time
	}

	// PushToken is the latest device token registered for a user.
	PushToken struct {
		UserID    string
		Token     string
		Platform  string
		Timestamp time.Time
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidPlatform      = errors.New("invalid platform")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrEmptyName            = errors.New("empty name")
	ErrEmptyProductCategory = errors.New("empty product category")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrEmptyTitle           = errors.New("empty title")
	ErrEmptyToken           = errors.New("empty push token")
	ErrEmptyUser            = errors.New("empty user id")

	// ErrLedgerConflict is returned by a guarded append when another entry
	// was posted after the one the balance was computed from.
	ErrLedgerConflict = errors.New("cash ledger changed since last read")
)

// ParseCategory normalizes s. Only buying and selling are accepted for new rows.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryBuying, CategorySelling:
		return c, nil
	}
	return "", ErrInvalidCategory
}

// Type derives the transaction type from the category.
func (c Category) Type() TransactionType {
	switch Category(strings.ToLower(string(c))) {
	case CategoryBuying, CategoryOutcome:
		return TypeOutcome
	default:
		return TypeIncome
	}
}

func (c Category) IsSelling() bool {
	return strings.EqualFold(string(c), string(CategorySelling))
}

func (c Category) IsBuying() bool {
	return strings.EqualFold(string(c), string(CategoryBuying))
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch p := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); p {
	case PaymentCash, PaymentQRIS:
		return p, nil
	}
	return "", ErrInvalidPaymentMethod
}

// SettlesInCash reports whether the payment moves cash-on-hand.
func (p PaymentMethod) SettlesInCash() bool {
	return strings.EqualFold(string(p), string(PaymentCash))
}

// ParsePlatform accepts an empty string as "no platform".
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PlatformOffline, PlatformGojek, PlatformGrab, PlatformShopee:
		return p, nil
	}
	return "", ErrInvalidPlatform
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Rupiah <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Times multiplies a unit price by a quantity.
func (m Money) Times(qty int64) Money {
	return Money{Rupiah: m.Rupiah * qty}
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if _, err := ParseCategory(string(t.Category)); err != nil {
		return err
	}
	if t.Type != t.Category.Type() {
		return ErrInvalidCategory
	}
	if _, err := ParsePaymentMethod(string(t.PaymentMethod)); err != nil {
		return err
	}
	if _, err := ParsePlatform(string(t.Platform)); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(p.Category) == "" {
		return ErrEmptyProductCategory
	}
	if p.Price.Rupiah <= 0 {
		return ErrInvalidPrice
	}
	if p.InStock < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (n Notification) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

func (p PushToken) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(p.Token) == "" {
		return ErrEmptyToken
	}
	return nil
}
