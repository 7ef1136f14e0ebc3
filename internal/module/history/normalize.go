// Package history projects the wallet service's raw transaction log into
// the fixed shape the client displays. The projection is deterministic and
// side-effect-free: same input, same output, nothing written anywhere.
package history

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fakecombank/teller/internal/gateway/bank"
)

// Type is the three-valued display type
type Type string

// Display types
const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeTransfer   Type = "TRANSFER"
)

// Status is the transaction settlement state
type Status string

// Settlement states
const (
	StatusCompleted Status = "COMPLETED"
	StatusPending   Status = "PENDING"
	StatusFailed    Status = "FAILED"
)

// MaxRecent is how many transactions the history view shows.
const MaxRecent = 5

// Transaction is one normalized display record
type Transaction struct {
	ID          int64
	Amount      float64
	Description string
	Timestamp   time.Time
	Type        Type
	Status      Status
}

// typeTable maps the backend's native type vocabulary onto the three
// display types. Asset trades count as withdrawals; anything unrecognized
// falls back to TRANSFER.
var typeTable = map[string]Type{
	"ADD_MONEY":       TypeDeposit,
	"WITHDRAW":        TypeWithdrawal,
	"WALLET_TRANSFER": TypeTransfer,
	"BUY_ASSET":       TypeWithdrawal,
	"SELL_ASSET":      TypeWithdrawal,
}

// Normalize maps raw backend records onto display transactions: recognized
// type codes are translated, missing descriptions synthesized, records
// without an identifier or amount discarded, and the result sorted newest
// first and truncated to MaxRecent.
func Normalize(raw []bank.RawTransaction) []Transaction {
	normalized := make([]Transaction, 0, len(raw))

	for _, r := range raw {
		if r.ID == 0 || r.Amount == nil || math.IsNaN(float64(*r.Amount)) {
			continue
		}

		normalized = append(normalized, Transaction{
			ID:          r.ID,
			Amount:      float64(*r.Amount),
			Description: describe(r),
			Timestamp:   r.When(),
			Type:        mapType(r.Type),
			Status:      mapStatus(r.Status),
		})
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Timestamp.After(normalized[j].Timestamp)
	})

	if len(normalized) > MaxRecent {
		normalized = normalized[:MaxRecent]
	}
	return normalized
}

func mapType(code string) Type {
	if t, ok := typeTable[code]; ok {
		return t
	}
	return TypeTransfer
}

func mapStatus(s string) Status {
	switch Status(s) {
	case StatusCompleted, StatusPending, StatusFailed:
		return Status(s)
	case "":
		return StatusCompleted
	default:
		return StatusCompleted
	}
}

// describe keeps the backend-supplied purpose when present and synthesizes
// the product's wording otherwise.
func describe(r bank.RawTransaction) string {
	if r.Purpose != "" {
		return r.Purpose
	}

	switch r.Type {
	case "ADD_MONEY":
		return "Nạp tiền vào tài khoản"
	case "WITHDRAW":
		return "Rút tiền"
	case "WALLET_TRANSFER":
		if r.TransferID != nil {
			return fmt.Sprintf("Chuyển tiền đến ví #%d", *r.TransferID)
		}
		return "Chuyển tiền"
	case "BUY_ASSET":
		return "Mua tài sản"
	case "SELL_ASSET":
		return "Bán tài sản"
	default:
		return "Giao dịch"
	}
}
