// Package transfer submits wallet-to-wallet transfers. The wallet service
// is the only authority on whether a transfer settles; this package
// validates input, refreshes the balance right before submitting so the
// check never runs against a stale view, and adopts the post-transfer
// balance the service reports.
package transfer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	apperrors "github.com/fakecombank/teller/internal/shared/errors"

	"github.com/fakecombank/teller/internal/gateway/bank"
	"github.com/fakecombank/teller/internal/platform/balance"
	"github.com/fakecombank/teller/pkg/logger"
	"github.com/fakecombank/teller/pkg/money"
)

// DefaultPurpose is used when the sender leaves the purpose empty.
const DefaultPurpose = "Chuyển tiền đến ví"

var receiverIDPattern = regexp.MustCompile(`^\d+$`)

// RemoteTransfer is the slice of the wallet service this package needs.
type RemoteTransfer interface {
	Transfer(ctx context.Context, receiverID string, amount float64, purpose string) (*bank.WalletUpdate, error)
}

// Receipt describes a settled transfer.
type Receipt struct {
	ReceiverID string
	Amount     float64
	Purpose    string
	NewBalance float64
}

// Service submits transfers against the wallet service.
type Service struct {
	client  RemoteTransfer
	balance *balance.Store
	logger  *logger.Logger
}

// NewService creates the transfer service
func NewService(client RemoteTransfer, bal *balance.Store, log *logger.Logger) *Service {
	return &Service{
		client:  client,
		balance: bal,
		logger:  log.WithField("component", "transfer"),
	}
}

// Send validates and submits one transfer. The balance is re-read from the
// wallet service before the local check so a deposit made in another view
// counts; the service's own verdict still wins, and a rejection is
// surfaced verbatim with no automatic retry.
func (s *Service) Send(ctx context.Context, receiverID string, amount float64, purpose string) (*Receipt, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, apperrors.Validation("Số tiền không hợp lệ")
	}

	receiverID = strings.TrimSpace(receiverID)
	if !receiverIDPattern.MatchString(receiverID) {
		return nil, apperrors.Validation("ID ví người nhận không hợp lệ")
	}

	current, fresh, err := s.balance.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if !fresh {
		s.logger.Warn("checking transfer against cached balance", "balance", current)
	}

	if current < amount {
		return nil, apperrors.InsufficientBalance(fmt.Sprintf(
			"Số dư không đủ để thực hiện giao dịch. Số dư hiện tại: %s",
			money.FormatUSD(current)))
	}

	if strings.TrimSpace(purpose) == "" {
		purpose = DefaultPurpose
	}

	wallet, err := s.client.Transfer(ctx, receiverID, amount, purpose)
	if err != nil {
		return nil, err
	}

	var newBalance float64
	if wallet.Balance != nil {
		newBalance = *wallet.Balance
		if err := s.balance.Adopt(ctx, newBalance); err != nil {
			return nil, err
		}
	} else {
		// The transfer settled but the response carried no balance, so
		// re-fetch rather than guess.
		newBalance, _, err = s.balance.Refresh(ctx)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("transfer settled", "receiver", receiverID, "amount", amount)
	return &Receipt{
		ReceiverID: receiverID,
		Amount:     amount,
		Purpose:    purpose,
		NewBalance: newBalance,
	}, nil
}
