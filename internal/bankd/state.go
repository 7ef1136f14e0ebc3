// Package bankd is an in-memory stand-in for the production wallet
// service. It implements the same HTTP surface the teller client consumes
// so the whole product can be exercised locally without the real backend.
// Nothing survives a restart.
package bankd

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
)

// State errors, translated to HTTP statuses by the handlers.
var (
	ErrEmailTaken          = errors.New("email đã được sử dụng")
	ErrInvalidCredentials  = errors.New("email hoặc mật khẩu không đúng")
	ErrWalletNotFound      = errors.New("không tìm thấy ví")
	ErrOrderNotFound       = errors.New("không tìm thấy đơn thanh toán")
	ErrInsufficientBalance = errors.New("số dư không đủ")
)

// Order settlement states
const (
	orderPending = "PENDING"
	orderSuccess = "SUCCESS"
)

type account struct {
	ID           int64
	FullName     string
	Email        string
	Mobile       string
	Role         string
	PasswordHash []byte
	WalletID     int64
}

type walletState struct {
	ID      int64
	OwnerID int64
	Balance float64
}

type paymentOrder struct {
	ID        string
	PaymentID string
	UserID    int64
	Amount    float64
	Method    string
	Status    string
}

type txRecord struct {
	ID         int64
	WalletID   int64
	Amount     float64
	Type       string
	TransferID *int64
	Purpose    string
	Date       time.Time
	Status     string
}

// Ledger is the whole bank: accounts, wallets, payment orders and the
// transaction log, guarded by one mutex. bankd serves a handful of local
// views, not production traffic.
type Ledger struct {
	mu           sync.Mutex
	accountsByID map[int64]*account
	byEmail      map[string]*account
	wallets      map[int64]*walletState
	orders       map[string]*paymentOrder
	transactions map[int64][]txRecord

	nextUserID   int64
	nextWalletID int64
	nextTxID     int64
}

// NewLedger creates an empty bank
func NewLedger() *Ledger {
	return &Ledger{
		accountsByID: make(map[int64]*account),
		byEmail:      make(map[string]*account),
		wallets:      make(map[int64]*walletState),
		orders:       make(map[string]*paymentOrder),
		transactions: make(map[int64][]txRecord),
		nextUserID:   1,
		nextWalletID: 1,
		nextTxID:     1,
	}
}

// CreateAccount registers a user and opens an empty wallet for them.
func (l *Ledger) CreateAccount(fullName, email, password, mobile string) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}

	wallet := &walletState{ID: l.nextWalletID, Balance: 0}
	l.nextWalletID++

	acc := &account{
		ID:           l.nextUserID,
		FullName:     fullName,
		Email:        email,
		Mobile:       mobile,
		Role:         "ROLE_USER",
		PasswordHash: hash,
		WalletID:     wallet.ID,
	}
	l.nextUserID++

	wallet.OwnerID = acc.ID
	l.accountsByID[acc.ID] = acc
	l.byEmail[email] = acc
	l.wallets[wallet.ID] = wallet
	return acc, nil
}

// Authenticate verifies the credentials and returns the account.
func (l *Ledger) Authenticate(email, password string) (*account, error) {
	l.mu.Lock()
	acc, ok := l.byEmail[email]
	l.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// Account returns the account by user id.
func (l *Ledger) Account(userID int64) (*account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accountsByID[userID]
	return acc, ok
}

// UpdateAccount overwrites the mutable profile fields.
func (l *Ledger) UpdateAccount(userID int64, fullName, mobile string) (*account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accountsByID[userID]
	if !ok {
		return nil, false
	}
	if fullName != "" {
		acc.FullName = fullName
	}
	if mobile != "" {
		acc.Mobile = mobile
	}
	return acc, true
}

// WalletByUser returns the user's wallet.
func (l *Ledger) WalletByUser(userID int64) (*walletState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.walletByUserLocked(userID)
}

func (l *Ledger) walletByUserLocked(userID int64) (*walletState, error) {
	acc, ok := l.accountsByID[userID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	wallet, ok := l.wallets[acc.WalletID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

// Transfer moves amount from the user's wallet to receiverWalletID and
// records a transaction on both sides. The sender's updated wallet is
// returned.
func (l *Ledger) Transfer(senderUserID, receiverWalletID int64, amount float64, purpose string) (*walletState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sender, err := l.walletByUserLocked(senderUserID)
	if err != nil {
		return nil, err
	}
	receiver, ok := l.wallets[receiverWalletID]
	if !ok {
		return nil, ErrWalletNotFound
	}
	if sender.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	sender.Balance -= amount
	receiver.Balance += amount

	transferID := receiver.ID
	l.appendTxLocked(sender.ID, txRecord{
		Amount:     amount,
		Type:       "WALLET_TRANSFER",
		TransferID: &transferID,
		Purpose:    purpose,
	})
	l.appendTxLocked(receiver.ID, txRecord{
		Amount:  amount,
		Type:    "ADD_MONEY",
		Purpose: purpose,
	})
	return sender, nil
}

// CreateOrder opens a pending payment order for the user.
func (l *Ledger) CreateOrder(userID int64, method string, amount float64) *paymentOrder {
	order := &paymentOrder{
		ID:        uuid.NewString(),
		PaymentID: uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Method:    method,
		Status:    orderPending,
	}

	l.mu.Lock()
	l.orders[order.ID] = order
	l.mu.Unlock()
	return order
}

// SettleOrder credits the order's wallet once. A second settlement of the
// same order returns the wallet unchanged, so a double provider callback
// cannot credit twice.
func (l *Ledger) SettleOrder(orderID string) (*walletState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}

	wallet, err := l.walletByUserLocked(order.UserID)
	if err != nil {
		return nil, err
	}

	if order.Status == orderSuccess {
		return wallet, nil
	}

	order.Status = orderSuccess
	wallet.Balance += order.Amount
	l.appendTxLocked(wallet.ID, txRecord{
		Amount: order.Amount,
		Type:   "ADD_MONEY",
	})
	return wallet, nil
}

// Transactions returns the user's transaction log, most recent last.
func (l *Ledger) Transactions(userID int64) ([]txRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	wallet, err := l.walletByUserLocked(userID)
	if err != nil {
		return nil, err
	}

	log := l.transactions[wallet.ID]
	out := make([]txRecord, len(log))
	copy(out, log)
	return out, nil
}

func (l *Ledger) appendTxLocked(walletID int64, tx txRecord) {
	tx.ID = l.nextTxID
	l.nextTxID++
	tx.WalletID = walletID
	tx.Date = time.Now().UTC()
	tx.Status = "COMPLETED"
	l.transactions[walletID] = append(l.transactions[walletID], tx)
}
