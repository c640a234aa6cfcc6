package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"kasir/internal/core"
)

// Event kinds carried on the sync queue.
const (
	KindCashPosted          = "cash.posted"
	KindTransactionRecorded = "transaction.recorded"
)

// CashPayload is a ledger row as mirrored downstream.
type CashPayload struct {
	ID          int64     `json:"id"`
	Nominal     int64     `json:"nominal"`
	Description string    `json:"desc"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TransactionPayload is a transaction row as mirrored downstream.
type TransactionPayload struct {
	ID            string    `json:"id"`
	OrderID       *string   `json:"order_id,omitempty"`
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Category      string    `json:"category"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	PaymentMethod string    `json:"payment_method"`
	Platform      string    `json:"platform,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// LedgerEvent is published after a cash entry or a transaction is written.
// It carries the full row so consumers need no access to the database.
type LedgerEvent struct {
	Kind        string              `json:"kind"`
	Cash        *CashPayload        `json:"cash,omitempty"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

func NewCashPostedEvent(e core.CashEntry) *LedgerEvent {
	return &LedgerEvent{
		Kind: KindCashPosted,
		Cash: &CashPayload{
			ID:          e.ID,
			Nominal:     e.Nominal.Rupiah,
			Description: e.Description,
			UpdatedAt:   e.UpdatedAt,
		},
		Timestamp: time.Now(),
	}
}

func NewTransactionRecordedEvent(t core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Kind: KindTransactionRecorded,
		Transaction: &TransactionPayload{
			ID:            t.ID,
			OrderID:       t.OrderID,
			UserID:        t.UserID,
			Amount:        t.Amount.Rupiah,
			Status:        string(t.Status),
			Category:      string(t.Category),
			Type:          string(t.Type),
			Description:   t.Description,
			PaymentMethod: string(t.PaymentMethod),
			Platform:      string(t.Platform),
			CreatedAt:     t.CreatedAt,
		},
		Timestamp: time.Now(),
	}
}

// CashEntry converts the payload back to the domain type.
func (p *CashPayload) CashEntry() core.CashEntry {
	return core.CashEntry{
		ID:          p.ID,
		Nominal:     core.Money{Rupiah: p.Nominal},
		Description: p.Description,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (p *TransactionPayload) Transaction() core.Transaction {
	return core.Transaction{
		ID:            p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Amount:        core.Money{Rupiah: p.Amount},
		Status:        core.Status(p.Status),
		Category:      core.Category(p.Category),
		Type:          core.TransactionType(p.Type),
		Description:   p.Description,
		PaymentMethod: core.PaymentMethod(p.PaymentMethod),
		Platform:      core.Platform(p.Platform),
		CreatedAt:     p.CreatedAt,
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks that the payload matches the kind.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch {
	case msg.Kind == KindCashPosted && msg.Cash != nil:
	case msg.Kind == KindTransactionRecorded && msg.Transaction != nil:
	default:
		return nil, fmt.Errorf("malformed ledger event %q", msg.Kind)
	}
	return &msg, nil
}

// NotificationMessage is fanned out to realtime subscribers on insert.
type NotificationMessage struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

func notificationMessage(n core.Notification) NotificationMessage {
	return NotificationMessage{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt,
	}
}

func (m NotificationMessage) Notification() core.Notification {
	return core.Notification{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
	}
}
