package bankd

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fakecombank/teller/internal/shared/errors"

	"github.com/fakecombank/teller/internal/gateway/bank"
	"github.com/fakecombank/teller/internal/gateway/marketdata"
	"github.com/fakecombank/teller/pkg/logger"
)

// The tests drive bankd through the same client the teller uses, so they
// cover both sides of the contract at once.

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := logger.New("test", io.Discard)
	jwtService := NewJWTService("0123456789abcdef0123456789abcdef")
	handlers := NewHandlers(NewLedger(), jwtService, log)

	srv := httptest.NewServer(NewRouter(RouterConfig{
		Logger:   log,
		Handlers: handlers,
		JWT:      jwtService,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signedUpClient(t *testing.T, srv *httptest.Server, fullName, email string) *bank.Client {
	t.Helper()

	var token string
	client := bank.NewClient(srv.URL, bank.WithTokenSource(func() string { return token }))

	resp, err := client.SignUp(context.Background(), fullName, email, "secret123", "")
	require.NoError(t, err)
	require.NotEmpty(t, resp.JWT)
	token = resp.JWT
	return client
}

// orderIDFromRedirect pulls the order id out of the checkout URL, standing
// in for the provider callback that would carry it back.
func orderIDFromRedirect(t *testing.T, redirect string) string {
	t.Helper()
	parsed, err := url.Parse(redirect)
	require.NoError(t, err)
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	return parts[len(parts)-1]
}

func deposit(t *testing.T, client *bank.Client, amount float64) {
	t.Helper()

	order, err := client.CreatePaymentOrder(context.Background(), "VNPAY", amount)
	require.NoError(t, err)

	_, err = client.ConfirmDeposit(context.Background(), orderIDFromRedirect(t, order.PaymentURL), order.PaymentID)
	require.NoError(t, err)
}

func TestSignUp_OpensEmptyWallet(t *testing.T) {
	srv := newTestServer(t)
	client := signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")

	wallet, err := client.GetWallet(context.Background())
	require.NoError(t, err)
	assert.Zero(t, wallet.Balance)
	assert.NotZero(t, wallet.ID)
}

func TestSignUp_DuplicateEmailConflicts(t *testing.T) {
	srv := newTestServer(t)
	signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")

	client := bank.NewClient(srv.URL)
	_, err := client.SignUp(context.Background(), "Someone Else", "an@example.com", "secret123", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
}

func TestSignIn_WrongPasswordIsUnauthorized(t *testing.T) {
	srv := newTestServer(t)
	signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")

	client := bank.NewClient(srv.URL)
	_, err := client.SignIn(context.Background(), "an@example.com", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnauthorized))
}

func TestDeposit_ConfirmIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	client := signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")

	order, err := client.CreatePaymentOrder(context.Background(), "VNPAY", 500)
	require.NoError(t, err)
	require.NotEmpty(t, order.PaymentURL)

	orderID := orderIDFromRedirect(t, order.PaymentURL)

	first, err := client.ConfirmDeposit(context.Background(), orderID, order.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, first.Balance)
	assert.InDelta(t, 500, *first.Balance, 1e-9)

	// Second provider callback for the same order credits nothing.
	second, err := client.ConfirmDeposit(context.Background(), orderID, order.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, second.Balance)
	assert.InDelta(t, 500, *second.Balance, 1e-9)
}

func TestDeposit_UnknownOrderIsRejected(t *testing.T) {
	srv := newTestServer(t)
	client := signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")

	_, err := client.ConfirmDeposit(context.Background(), "no-such-order", "pay-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServerRejected))
	assert.Contains(t, err.Error(), "Không tìm thấy đơn thanh toán")
}

func TestTransfer_MovesMoneyAndLogsBothSides(t *testing.T) {
	srv := newTestServer(t)
	sender := signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")
	receiver := signedUpClient(t, srv, "Trần Thị Bình", "binh@example.com")

	deposit(t, sender, 500)

	receiverWallet, err := receiver.GetWallet(context.Background())
	require.NoError(t, err)

	senderWallet, err := sender.Transfer(context.Background(), walletIDString(receiverWallet.ID), 120, "Tiền ăn trưa")
	require.NoError(t, err)
	require.NotNil(t, senderWallet.Balance)
	assert.InDelta(t, 380, *senderWallet.Balance, 1e-9)

	receiverWallet, err = receiver.GetWallet(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 120, receiverWallet.Balance, 1e-9)

	senderLog, err := sender.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, senderLog, 2)
	last := senderLog[1]
	assert.Equal(t, "WALLET_TRANSFER", last.Type)
	require.NotNil(t, last.TransferID)
	assert.Equal(t, receiverWallet.ID, *last.TransferID)
	assert.Equal(t, "Tiền ăn trưa", last.Purpose)

	receiverLog, err := receiver.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, receiverLog, 1)
	assert.Equal(t, "ADD_MONEY", receiverLog[0].Type)
}

func TestTransfer_InsufficientBalanceIsRejectedVerbatim(t *testing.T) {
	srv := newTestServer(t)
	sender := signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")
	receiver := signedUpClient(t, srv, "Trần Thị Bình", "binh@example.com")

	receiverWallet, err := receiver.GetWallet(context.Background())
	require.NoError(t, err)

	_, err = sender.Transfer(context.Background(), walletIDString(receiverWallet.ID), 50, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServerRejected))
	assert.Contains(t, err.Error(), "Số dư không đủ để thực hiện giao dịch")
}

func TestTransfer_UnknownReceiverIsRejected(t *testing.T) {
	srv := newTestServer(t)
	sender := signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")
	deposit(t, sender, 100)

	_, err := sender.Transfer(context.Background(), "9999", 50, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServerRejected))
	assert.Contains(t, err.Error(), "Ví người nhận không tồn tại")
}

func TestProtectedEndpoints_RejectMissingToken(t *testing.T) {
	srv := newTestServer(t)

	unauthorizedCalls := 0
	client := bank.NewClient(srv.URL, bank.WithUnauthorizedHook(func() { unauthorizedCalls++ }))

	_, err := client.GetWallet(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUnauthorized))
	assert.Equal(t, 1, unauthorizedCalls)
}

func TestProfile_ReadAndUpdate(t *testing.T) {
	srv := newTestServer(t)
	client := signedUpClient(t, srv, "Nguyễn Văn An", "an@example.com")

	profile, err := client.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Nguyễn Văn An", profile.FullName)
	assert.Equal(t, "an@example.com", profile.Email)

	updated, err := client.UpdateProfile(context.Background(), &bank.Profile{FullName: "Nguyễn Văn An Khang", Mobile: "0901234567"})
	require.NoError(t, err)
	assert.Equal(t, "Nguyễn Văn An Khang", updated.FullName)
	assert.Equal(t, "0901234567", updated.Mobile)
}

func TestCoinEndpoints_ServeCannedMarket(t *testing.T) {
	srv := newTestServer(t)
	md := marketdata.NewClient(srv.URL)

	top, err := md.GetTopCoins(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, "bitcoin", top[0].ID)

	price, err := md.CurrentPriceUSD(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Greater(t, price, 0.0)

	trending, err := md.GetTrendingCoins(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, trending.Coins)

	chart, err := md.GetMarketChart(context.Background(), "bitcoin", 7)
	require.NoError(t, err)
	assert.NotEmpty(t, chart.Prices)

	search, err := md.SearchCoins(context.Background(), "sol")
	require.NoError(t, err)
	require.NotEmpty(t, search.Coins)
	assert.Equal(t, "solana", search.Coins[0].ID)
}

func walletIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
