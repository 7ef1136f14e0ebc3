// Package trading simulates coin purchases and sales against the local
// wallet. Trades never reach the bank: the cost or proceeds are applied to
// the balance store and the owned quantities are kept in the durable local
// store, so every view of the same account sees the same portfolio.
package trading

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	apperrors "github.com/fakecombank/teller/internal/shared/errors"

	"github.com/fakecombank/teller/internal/localstore"
	"github.com/fakecombank/teller/internal/notify"
	"github.com/fakecombank/teller/internal/platform/balance"
	"github.com/fakecombank/teller/pkg/logger"
	"github.com/fakecombank/teller/pkg/money"
)

// PriceSource quotes the current USD price for a coin.
type PriceSource interface {
	CurrentPriceUSD(ctx context.Context, coinID string) (float64, error)
}

// Trade is the settled result of a buy or sell.
type Trade struct {
	CoinID     string
	Quantity   float64
	PriceUSD   float64
	TotalUSD   float64
	NewBalance float64
	Owned      float64
}

// Service executes simulated trades.
type Service struct {
	balance  *balance.Store
	store    localstore.Store
	notifier notify.Notifier
	prices   PriceSource
	logger   *logger.Logger
}

// NewService creates the trading service
func NewService(bal *balance.Store, store localstore.Store, notifier notify.Notifier, prices PriceSource, log *logger.Logger) *Service {
	return &Service{
		balance:  bal,
		store:    store,
		notifier: notifier,
		prices:   prices,
		logger:   log.WithField("component", "trading"),
	}
}

// Buy purchases quantity units of coinID at the current market price,
// funded from the wallet balance. Rejected trades leave both the balance
// and the holdings untouched.
func (s *Service) Buy(ctx context.Context, coinID string, quantity float64) (*Trade, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	coinID = strings.ToLower(strings.TrimSpace(coinID))
	if coinID == "" {
		return nil, apperrors.Validation("Vui lòng chọn loại tiền điện tử")
	}

	bal, err := s.currentBalance(ctx)
	if err != nil {
		return nil, err
	}

	price, err := s.prices.CurrentPriceUSD(ctx, coinID)
	if err != nil {
		return nil, err
	}

	cost := price * quantity
	if cost > bal {
		return nil, apperrors.InsufficientBalance(fmt.Sprintf(
			"Số dư không đủ để mua. Cần %s, số dư hiện tại: %s",
			money.FormatUSD(cost), money.FormatUSD(bal)))
	}

	holdings, err := s.Holdings(ctx)
	if err != nil {
		return nil, err
	}
	prior := holdings[coinID]
	holdings[coinID] = prior + quantity

	if err := s.saveHoldings(ctx, holdings); err != nil {
		return nil, err
	}

	newBalance := bal - cost
	if err := s.balance.Adopt(ctx, newBalance); err != nil {
		// Undo the holdings write so the coin is never credited for free.
		if prior == 0 {
			delete(holdings, coinID)
		} else {
			holdings[coinID] = prior
		}
		if undoErr := s.saveHoldings(ctx, holdings); undoErr != nil {
			s.logger.Error("failed to revert holdings after balance write error", "error", undoErr)
		}
		return nil, err
	}

	s.logger.Info("bought coin", "coin", coinID, "quantity", quantity, "cost", cost)
	return &Trade{
		CoinID:     coinID,
		Quantity:   quantity,
		PriceUSD:   price,
		TotalUSD:   cost,
		NewBalance: newBalance,
		Owned:      holdings[coinID],
	}, nil
}

// Sell disposes of quantity units of coinID at the current market price
// and credits the proceeds to the wallet balance. Selling more than is
// owned is rejected without touching any state; selling the entire
// position removes the coin from the portfolio.
func (s *Service) Sell(ctx context.Context, coinID string, quantity float64) (*Trade, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	coinID = strings.ToLower(strings.TrimSpace(coinID))
	if coinID == "" {
		return nil, apperrors.Validation("Vui lòng chọn loại tiền điện tử")
	}

	holdings, err := s.Holdings(ctx)
	if err != nil {
		return nil, err
	}

	owned := holdings[coinID]
	if quantity > owned {
		return nil, apperrors.Validation(fmt.Sprintf(
			"Bạn chỉ sở hữu %s %s", money.FormatQuantity(owned), strings.ToUpper(coinID)))
	}

	bal, err := s.currentBalance(ctx)
	if err != nil {
		return nil, err
	}

	price, err := s.prices.CurrentPriceUSD(ctx, coinID)
	if err != nil {
		return nil, err
	}
	proceeds := price * quantity

	remaining := owned - quantity
	if remaining == 0 {
		delete(holdings, coinID)
	} else {
		holdings[coinID] = remaining
	}

	if err := s.saveHoldings(ctx, holdings); err != nil {
		return nil, err
	}

	newBalance := bal + proceeds
	if err := s.balance.Adopt(ctx, newBalance); err != nil {
		// Undo the holdings write so the position is not lost without proceeds.
		holdings[coinID] = owned
		if undoErr := s.saveHoldings(ctx, holdings); undoErr != nil {
			s.logger.Error("failed to revert holdings after balance write error", "error", undoErr)
		}
		return nil, err
	}

	s.logger.Info("sold coin", "coin", coinID, "quantity", quantity, "proceeds", proceeds)
	return &Trade{
		CoinID:     coinID,
		Quantity:   quantity,
		PriceUSD:   price,
		TotalUSD:   proceeds,
		NewBalance: newBalance,
		Owned:      remaining,
	}, nil
}

// Holdings returns the owned quantity per coin id. A missing or malformed
// stored value reads as an empty portfolio.
func (s *Service) Holdings(ctx context.Context) (map[string]float64, error) {
	raw, ok, err := s.store.Get(ctx, localstore.KeyHolding)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]float64{}, nil
	}

	holdings := map[string]float64{}
	if err := json.Unmarshal([]byte(raw), &holdings); err != nil {
		s.logger.Warn("discarding malformed holdings", "error", err)
		return map[string]float64{}, nil
	}
	return holdings, nil
}

func (s *Service) saveHoldings(ctx context.Context, holdings map[string]float64) error {
	encoded, err := json.Marshal(holdings)
	if err != nil {
		return apperrors.Internal("failed to encode holdings", err)
	}

	if err := s.store.Set(ctx, localstore.KeyHolding, string(encoded)); err != nil {
		return err
	}

	if err := s.notifier.Publish(ctx, notify.Change{
		Key:      localstore.KeyHolding,
		NewValue: string(encoded),
	}); err != nil {
		s.logger.Warn("failed to broadcast holdings change", "error", err)
	}
	return nil
}

func (s *Service) currentBalance(ctx context.Context) (float64, error) {
	if bal, ok := s.balance.Current(); ok {
		return bal, nil
	}
	bal, _, err := s.balance.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	return bal, nil
}

func validateQuantity(quantity float64) error {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity <= 0 {
		return apperrors.Validation("Số lượng không hợp lệ")
	}
	return nil
}
