package bankd

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fakecombank/teller/pkg/logger"
)

// Handlers serves the wallet service HTTP surface.
type Handlers struct {
	ledger *Ledger
	jwt    *JWTService
	logger *logger.Logger

	// paymentBase is where payment redirects point. The checkout page does
	// not exist; the client only needs a URL to hand to the user.
	paymentBase string
}

// NewHandlers creates the handler set
func NewHandlers(ledger *Ledger, jwtService *JWTService, log *logger.Logger) *Handlers {
	return &Handlers{
		ledger:      ledger,
		jwt:         jwtService,
		logger:      log.WithField("component", "bankd"),
		paymentBase: "https://pay.fakecombank.dev/checkout",
	}
}

type authResponse struct {
	JWT     string `json:"jwt"`
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

type walletResponse struct {
	ID      int64   `json:"id"`
	Balance float64 `json:"balance"`
}

type profileResponse struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Mobile   string `json:"mobile,omitempty"`
}

type transactionResponse struct {
	ID         int64   `json:"id"`
	Amount     float64 `json:"amount"`
	Type       string  `json:"type"`
	TransferID *int64  `json:"transferId,omitempty"`
	Purpose    string  `json:"purpose,omitempty"`
	Date       string  `json:"date"`
	Status     string  `json:"status"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with a "message" body
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"message": message}, statusCode)
}

// SignUp handles POST /auth/signup
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Mobile   string `json:"mobile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Yêu cầu không hợp lệ", http.StatusBadRequest)
		return
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		respondError(w, "Thiếu thông tin đăng ký", http.StatusBadRequest)
		return
	}

	acc, err := h.ledger.CreateAccount(req.FullName, req.Email, req.Password, req.Mobile)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			respondError(w, "Email đã được sử dụng", http.StatusConflict)
			return
		}
		respondError(w, "Không thể tạo tài khoản", http.StatusInternalServerError)
		return
	}

	token, err := h.jwt.GenerateToken(acc.ID, acc.Email)
	if err != nil {
		respondError(w, "Không thể tạo phiên đăng nhập", http.StatusInternalServerError)
		return
	}

	respondJSON(w, authResponse{JWT: token, Status: true, Message: "Đăng ký thành công"}, http.StatusOK)
}

// SignIn handles POST /auth/signin
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Yêu cầu không hợp lệ", http.StatusBadRequest)
		return
	}

	acc, err := h.ledger.Authenticate(req.Email, req.Password)
	if err != nil {
		respondError(w, "Email hoặc mật khẩu không đúng", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.GenerateToken(acc.ID, acc.Email)
	if err != nil {
		respondError(w, "Không thể tạo phiên đăng nhập", http.StatusInternalServerError)
		return
	}

	respondJSON(w, authResponse{JWT: token, Status: true, Message: "Đăng nhập thành công"}, http.StatusOK)
}

// GetWallet handles GET /api/wallet
func (h *Handlers) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Phiên đăng nhập không hợp lệ", http.StatusUnauthorized)
		return
	}

	wallet, err := h.ledger.WalletByUser(userID)
	if err != nil {
		respondError(w, "Không tìm thấy ví", http.StatusNotFound)
		return
	}
	respondJSON(w, walletResponse{ID: wallet.ID, Balance: wallet.Balance}, http.StatusOK)
}

// Transfer handles PUT /api/wallet/{id}/transfer
func (h *Handlers) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Phiên đăng nhập không hợp lệ", http.StatusUnauthorized)
		return
	}

	receiverID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, "ID ví người nhận không hợp lệ", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount  float64 `json:"amount"`
		Purpose string  `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		respondError(w, "Số tiền không hợp lệ", http.StatusBadRequest)
		return
	}

	wallet, err := h.ledger.Transfer(userID, receiverID, req.Amount, req.Purpose)
	if err != nil {
		switch {
		case errors.Is(err, ErrInsufficientBalance):
			respondError(w, "Số dư không đủ để thực hiện giao dịch", http.StatusBadRequest)
		case errors.Is(err, ErrWalletNotFound):
			respondError(w, "Ví người nhận không tồn tại", http.StatusBadRequest)
		default:
			respondError(w, "Không thể thực hiện giao dịch", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, walletResponse{ID: wallet.ID, Balance: wallet.Balance}, http.StatusOK)
}

// CreatePayment handles POST /api/payment/{method}/amount/{amount}
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Phiên đăng nhập không hợp lệ", http.StatusUnauthorized)
		return
	}

	method := chi.URLParam(r, "method")
	amount, err := strconv.ParseFloat(chi.URLParam(r, "amount"), 64)
	if err != nil || amount <= 0 {
		respondError(w, "Số tiền nạp không hợp lệ", http.StatusBadRequest)
		return
	}

	order := h.ledger.CreateOrder(userID, method, amount)
	redirect := h.paymentBase + "/" + order.ID + "?payment_id=" + url.QueryEscape(order.PaymentID)

	h.logger.Info("payment order created", "user_id", userID, "order_id", order.ID, "amount", amount)
	respondJSON(w, map[string]string{
		"payment_url": redirect,
		"payment_id":  order.PaymentID,
	}, http.StatusOK)
}

// ConfirmDeposit handles PUT /api/wallet/deposit
func (h *Handlers) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	if _, ok := UserIDFromContext(r.Context()); !ok {
		respondError(w, "Phiên đăng nhập không hợp lệ", http.StatusUnauthorized)
		return
	}

	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		respondError(w, "Thiếu mã đơn thanh toán", http.StatusBadRequest)
		return
	}

	wallet, err := h.ledger.SettleOrder(orderID)
	if err != nil {
		respondError(w, "Không tìm thấy đơn thanh toán", http.StatusBadRequest)
		return
	}
	respondJSON(w, walletResponse{ID: wallet.ID, Balance: wallet.Balance}, http.StatusOK)
}

// ListTransactions handles GET /api/transactions
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Phiên đăng nhập không hợp lệ", http.StatusUnauthorized)
		return
	}

	log, err := h.ledger.Transactions(userID)
	if err != nil {
		respondError(w, "Không tìm thấy ví", http.StatusNotFound)
		return
	}

	out := make([]transactionResponse, 0, len(log))
	for _, tx := range log {
		out = append(out, transactionResponse{
			ID:         tx.ID,
			Amount:     tx.Amount,
			Type:       tx.Type,
			TransferID: tx.TransferID,
			Purpose:    tx.Purpose,
			Date:       tx.Date.Format(time.RFC3339),
			Status:     tx.Status,
		})
	}
	respondJSON(w, out, http.StatusOK)
}

// GetProfile handles GET /api/users/profile
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Phiên đăng nhập không hợp lệ", http.StatusUnauthorized)
		return
	}

	acc, found := h.ledger.Account(userID)
	if !found {
		respondError(w, "Không tìm thấy tài khoản", http.StatusNotFound)
		return
	}
	respondJSON(w, profileResponse{
		ID:       acc.ID,
		FullName: acc.FullName,
		Email:    acc.Email,
		Role:     acc.Role,
		Mobile:   acc.Mobile,
	}, http.StatusOK)
}

// UpdateProfile handles PUT /api/users/profile
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, "Phiên đăng nhập không hợp lệ", http.StatusUnauthorized)
		return
	}

	var req struct {
		FullName string `json:"fullName"`
		Mobile   string `json:"mobile"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Yêu cầu không hợp lệ", http.StatusBadRequest)
		return
	}

	acc, found := h.ledger.UpdateAccount(userID, req.FullName, req.Mobile)
	if !found {
		respondError(w, "Không tìm thấy tài khoản", http.StatusNotFound)
		return
	}
	respondJSON(w, profileResponse{
		ID:       acc.ID,
		FullName: acc.FullName,
		Email:    acc.Email,
		Role:     acc.Role,
		Mobile:   acc.Mobile,
	}, http.StatusOK)
}
