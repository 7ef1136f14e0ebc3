// Package deposit drives the top-up flow. Money enters the wallet through
// an external payment provider: the client creates a payment order, hands
// the user the provider's redirect URL, and later confirms the order once
// the provider calls back with a payment id. Only the confirmation credits
// the wallet.
package deposit

import (
	"context"
	"math"
	"strings"
	"sync"

	apperrors "github.com/fakecombank/teller/internal/shared/errors"

	"github.com/fakecombank/teller/internal/gateway/bank"
	"github.com/fakecombank/teller/internal/platform/balance"
	"github.com/fakecombank/teller/pkg/logger"
)

// State is the flow's position in the deposit lifecycle.
type State string

// Deposit lifecycle states
const (
	StateIdle             State = "IDLE"
	StateAwaitingRedirect State = "AWAITING_REDIRECT"
	StateAwaitingCallback State = "AWAITING_CALLBACK"
	StateConfirming       State = "CONFIRMING"
	StateSettled          State = "SETTLED"
)

// RemoteDeposit is the slice of the wallet service the flow needs.
type RemoteDeposit interface {
	CreatePaymentOrder(ctx context.Context, method string, amount float64) (*bank.PaymentResponse, error)
	ConfirmDeposit(ctx context.Context, orderID, paymentID string) (*bank.WalletUpdate, error)
}

// Order is a created payment order awaiting the provider callback.
type Order struct {
	RedirectURL string
	PaymentID   string
	Amount      float64
	Method      string
}

// Flow runs one deposit at a time for this view.
type Flow struct {
	client  RemoteDeposit
	balance *balance.Store
	logger  *logger.Logger

	mu    sync.Mutex
	state State
}

// NewFlow creates an idle deposit flow
func NewFlow(client RemoteDeposit, bal *balance.Store, log *logger.Logger) *Flow {
	return &Flow{
		client:  client,
		balance: bal,
		logger:  log.WithField("component", "deposit"),
		state:   StateIdle,
	}
}

// State returns the flow's current lifecycle state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Start creates a payment order with the external provider and returns its
// redirect URL. The wallet is not credited here; the flow then waits for
// the provider callback. A failed order creation returns the flow to idle.
func (f *Flow) Start(ctx context.Context, method string, amount float64) (*Order, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, apperrors.Validation("Số tiền nạp không hợp lệ")
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, apperrors.Validation("Vui lòng chọn phương thức thanh toán")
	}

	f.mu.Lock()
	if f.state == StateConfirming {
		f.mu.Unlock()
		return nil, apperrors.Conflict("Giao dịch nạp tiền đang được xử lý")
	}
	f.state = StateAwaitingRedirect
	f.mu.Unlock()

	resp, err := f.client.CreatePaymentOrder(ctx, method, amount)
	if err != nil {
		f.setState(StateIdle)
		return nil, err
	}

	f.setState(StateAwaitingCallback)
	f.logger.Info("payment order created", "method", method, "amount", amount)
	return &Order{
		RedirectURL: resp.PaymentURL,
		PaymentID:   resp.PaymentID,
		Amount:      amount,
		Method:      method,
	}, nil
}

// Confirm reports the provider callback to the wallet service and adopts
// the credited balance, re-fetching it when the response omits one.
// While a confirmation is in flight further calls
// are rejected, so a double callback cannot credit twice from this side;
// the wallet service additionally ignores confirms for already settled
// orders. A failed confirmation stays retryable.
func (f *Flow) Confirm(ctx context.Context, orderID, paymentID string) (float64, error) {
	if strings.TrimSpace(orderID) == "" {
		return 0, apperrors.Validation("Thiếu mã đơn thanh toán")
	}

	f.mu.Lock()
	if f.state == StateConfirming {
		f.mu.Unlock()
		return 0, apperrors.Conflict("Giao dịch nạp tiền đang được xác nhận")
	}
	f.state = StateConfirming
	f.mu.Unlock()

	wallet, err := f.client.ConfirmDeposit(ctx, orderID, paymentID)
	if err != nil {
		f.setState(StateAwaitingCallback)
		return 0, err
	}

	var credited float64
	if wallet.Balance != nil {
		credited = *wallet.Balance
		if err := f.balance.Adopt(ctx, credited); err != nil {
			f.setState(StateAwaitingCallback)
			return 0, err
		}
	} else {
		// The order settled but the response carried no balance, so
		// re-fetch rather than guess.
		credited, _, err = f.balance.Refresh(ctx)
		if err != nil {
			f.setState(StateAwaitingCallback)
			return 0, err
		}
	}

	f.setState(StateSettled)
	f.logger.Info("deposit settled", "order_id", orderID, "balance", credited)
	return credited, nil
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}
