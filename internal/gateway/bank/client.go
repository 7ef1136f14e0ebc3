// Package bank is the HTTP client for the remote wallet service, the
// authoritative source of balances and transaction records.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/fakecombank/teller/internal/shared/errors"
)

const defaultTimeout = 15 * time.Second

// TokenSource supplies the current bearer credential, empty when signed out.
type TokenSource func() string

// Client talks to the wallet service. A 401 from any endpoint invokes
// OnUnauthorized exactly once per response so the session layer can clear
// the stored credential.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	token          TokenSource
	onUnauthorized func()
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the default 15s request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource attaches bearer credentials to every request
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithUnauthorizedHook registers the 401 callback
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// NewClient creates a wallet service client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetWallet reads the current balance and wallet id
func (c *Client) GetWallet(ctx context.Context) (*Wallet, error) {
	var wallet Wallet
	if err := c.do(ctx, http.MethodGet, "/api/wallet", nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Transfer debits the caller's wallet in favor of receiverID. The service
// responds with the sender's post-transfer wallet.
func (c *Client) Transfer(ctx context.Context, receiverID string, amount float64, purpose string) (*WalletUpdate, error) {
	body := map[string]interface{}{
		"amount":  amount,
		"purpose": purpose,
	}

	var wallet WalletUpdate
	path := fmt.Sprintf("/api/wallet/%s/transfer", url.PathEscape(receiverID))
	if err := c.do(ctx, http.MethodPut, path, body, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// CreatePaymentOrder asks the service for an external payment redirect
func (c *Client) CreatePaymentOrder(ctx context.Context, method string, amount float64) (*PaymentResponse, error) {
	path := fmt.Sprintf("/api/payment/%s/amount/%s",
		url.PathEscape(method),
		strconv.FormatFloat(amount, 'f', -1, 64))

	var resp PaymentResponse
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmDeposit exchanges the settlement-callback identifiers for a
// credited wallet. The endpoint is idempotent server-side.
func (c *Client) ConfirmDeposit(ctx context.Context, orderID, paymentID string) (*WalletUpdate, error) {
	params := url.Values{}
	params.Set("order_id", orderID)
	params.Set("payment_id", paymentID)

	var wallet WalletUpdate
	if err := c.do(ctx, http.MethodPut, "/api/wallet/deposit?"+params.Encode(), struct{}{}, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// ListTransactions reads the raw transaction log for the caller's wallet
func (c *Client) ListTransactions(ctx context.Context) ([]RawTransaction, error) {
	var txs []RawTransaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetProfile reads the signed-in user's profile
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, http.MethodGet, "/api/users/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile writes profile changes and returns the stored profile
func (c *Client) UpdateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	var updated Profile
	if err := c.do(ctx, http.MethodPut, "/api/users/profile", p, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SignIn authenticates with email and password. The service requires the
// two-factor flag in the body even when disabled.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"twoFactorAuth": map[string]bool{
			"enabled": false,
		},
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signin", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignUp registers a new account
func (c *Client) SignUp(ctx context.Context, fullName, email, password, mobile string) (*AuthResponse, error) {
	body := map[string]interface{}{
		"fullName": fullName,
		"email":    email,
		"password": password,
	}
	if mobile != "" {
		body["mobile"] = mobile
	}

	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do executes one request and maps failures onto the client error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Internal("failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Internal("failed to create request", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request never reached the server.
		return apperrors.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFromResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Internal("failed to decode response", err)
	}
	return nil
}

// errorFromResponse surfaces the server's message verbatim when there is
// one, else a status-specific generic.
func (c *Client) errorFromResponse(resp *http.Response) error {
	message := serverMessage(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		if message == "" {
			message = "Phiên đăng nhập đã hết hạn, vui lòng đăng nhập lại"
		}
		return apperrors.Unauthorized(message)
	case http.StatusForbidden:
		if message == "" {
			message = "Bạn không có quyền thực hiện thao tác này"
		}
		return apperrors.Forbidden(message)
	case http.StatusBadRequest:
		if message == "" {
			message = "Yêu cầu không hợp lệ"
		}
		return apperrors.ServerRejected(message)
	case http.StatusConflict:
		if message == "" {
			message = "Giao dịch bị xung đột, vui lòng thử lại"
		}
		return apperrors.Conflict(message)
	default:
		if message == "" {
			message = fmt.Sprintf("Máy chủ trả về lỗi không xác định (%d)", resp.StatusCode)
		}
		return apperrors.ServerRejected(message)
	}
}

// serverMessage extracts the "message" (or "error") field of an error body.
func serverMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil {
		return ""
	}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ""
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	return parsed.Error
}
