package deposit

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fakecombank/teller/internal/shared/errors"

	"github.com/fakecombank/teller/internal/gateway/bank"
	"github.com/fakecombank/teller/internal/localstore"
	"github.com/fakecombank/teller/internal/notify"
	"github.com/fakecombank/teller/internal/platform/balance"
	"github.com/fakecombank/teller/pkg/logger"
)

type MockRemoteDeposit struct {
	mock.Mock
}

func (m *MockRemoteDeposit) CreatePaymentOrder(ctx context.Context, method string, amount float64) (*bank.PaymentResponse, error) {
	args := m.Called(ctx, method, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bank.PaymentResponse), args.Error(1)
}

func (m *MockRemoteDeposit) ConfirmDeposit(ctx context.Context, orderID, paymentID string) (*bank.WalletUpdate, error) {
	args := m.Called(ctx, orderID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bank.WalletUpdate), args.Error(1)
}

func walletUpdate(id int64, balance float64) *bank.WalletUpdate {
	return &bank.WalletUpdate{ID: id, Balance: &balance}
}

type stubRemoteWallet struct {
	balance float64
}

func (s *stubRemoteWallet) GetWallet(ctx context.Context) (*bank.Wallet, error) {
	return &bank.Wallet{ID: 1, Balance: s.balance}, nil
}

type countingNotifier struct {
	notify.Notifier
	published []notify.Change
}

func (n *countingNotifier) Publish(ctx context.Context, change notify.Change) error {
	n.published = append(n.published, change)
	return nil
}

func newTestFlow(t *testing.T) (*Flow, *balance.Store, *MockRemoteDeposit, *countingNotifier, localstore.Store) {
	t.Helper()

	log := logger.New("test", io.Discard)
	store := localstore.NewMemoryStore()
	notifier := &countingNotifier{Notifier: notify.Noop{}}
	bal := balance.NewStore(&stubRemoteWallet{balance: 100}, store, notifier, log)

	client := new(MockRemoteDeposit)
	return NewFlow(client, bal, log), bal, client, notifier, store
}

func TestStart_ReturnsProviderRedirect(t *testing.T) {
	flow, _, client, _, _ := newTestFlow(t)

	client.On("CreatePaymentOrder", mock.Anything, "VNPAY", 500.0).
		Return(&bank.PaymentResponse{PaymentURL: "https://pay.example/checkout/abc"}, nil)

	order, err := flow.Start(context.Background(), "VNPAY", 500)
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example/checkout/abc", order.RedirectURL)
	assert.Equal(t, StateAwaitingCallback, flow.State())
	client.AssertExpectations(t)
}

func TestStart_FailedOrderCreationReturnsToIdle(t *testing.T) {
	flow, _, client, _, _ := newTestFlow(t)

	client.On("CreatePaymentOrder", mock.Anything, "VNPAY", 500.0).
		Return(nil, apperrors.Network(assert.AnError))

	_, err := flow.Start(context.Background(), "VNPAY", 500)
	require.Error(t, err)
	assert.Equal(t, StateIdle, flow.State())
}

func TestStart_ValidatesInput(t *testing.T) {
	flow, _, _, _, _ := newTestFlow(t)

	_, err := flow.Start(context.Background(), "VNPAY", 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))

	_, err = flow.Start(context.Background(), "  ", 100)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestConfirm_AdoptsCreditedBalanceAndBroadcastsOnce(t *testing.T) {
	flow, bal, client, notifier, store := newTestFlow(t)

	client.On("CreatePaymentOrder", mock.Anything, "VNPAY", 500.0).
		Return(&bank.PaymentResponse{PaymentURL: "https://pay.example/checkout/abc"}, nil)
	client.On("ConfirmDeposit", mock.Anything, "order-1", "pay-9").
		Return(walletUpdate(1, 600), nil)

	_, err := flow.Start(context.Background(), "VNPAY", 500)
	require.NoError(t, err)

	newBalance, err := flow.Confirm(context.Background(), "order-1", "pay-9")
	require.NoError(t, err)

	assert.InDelta(t, 600, newBalance, 1e-9)
	assert.Equal(t, StateSettled, flow.State())

	current, known := bal.Current()
	require.True(t, known)
	assert.InDelta(t, 600, current, 1e-9)

	cached, ok, err := store.Get(context.Background(), localstore.KeyBalance)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "600", cached)

	require.Len(t, notifier.published, 1)
	assert.Equal(t, localstore.KeyBalance, notifier.published[0].Key)
	assert.Equal(t, "600", notifier.published[0].NewValue)
}

func TestConfirm_FailureStaysRetryable(t *testing.T) {
	flow, bal, client, _, _ := newTestFlow(t)

	client.On("ConfirmDeposit", mock.Anything, "order-1", "pay-9").
		Return(nil, apperrors.Network(assert.AnError)).Once()
	client.On("ConfirmDeposit", mock.Anything, "order-1", "pay-9").
		Return(walletUpdate(1, 600), nil).Once()

	_, err := flow.Confirm(context.Background(), "order-1", "pay-9")
	require.Error(t, err)
	assert.Equal(t, StateAwaitingCallback, flow.State())

	newBalance, err := flow.Confirm(context.Background(), "order-1", "pay-9")
	require.NoError(t, err)
	assert.InDelta(t, 600, newBalance, 1e-9)

	current, _ := bal.Current()
	assert.InDelta(t, 600, current, 1e-9)
}

func TestConfirm_ResponseWithoutBalanceTriggersRefetch(t *testing.T) {
	// A success body that omits the balance must not be adopted as zero;
	// the flow re-reads the wallet instead.
	flow, bal, client, _, _ := newTestFlow(t)

	client.On("ConfirmDeposit", mock.Anything, "order-1", "pay-9").
		Return(&bank.WalletUpdate{ID: 1}, nil)

	newBalance, err := flow.Confirm(context.Background(), "order-1", "pay-9")
	require.NoError(t, err)

	assert.InDelta(t, 100, newBalance, 1e-9)
	assert.Equal(t, StateSettled, flow.State())

	current, known := bal.Current()
	require.True(t, known)
	assert.InDelta(t, 100, current, 1e-9)
}

func TestConfirm_RequiresOrderID(t *testing.T) {
	flow, _, _, _, _ := newTestFlow(t)

	_, err := flow.Confirm(context.Background(), "", "pay-9")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}
