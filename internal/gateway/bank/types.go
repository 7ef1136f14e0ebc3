package bank

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Wallet is the remote wallet as the service returns it
type Wallet struct {
	ID      int64   `json:"id"`
	Balance float64 `json:"balance"`
}

// WalletUpdate is the wallet as mutating endpoints return it. Balance is a
// pointer so a success body that omits it is distinguishable from a zero
// balance and the caller can re-fetch instead of adopting 0.
type WalletUpdate struct {
	ID      int64    `json:"id"`
	Balance *float64 `json:"balance"`
}

// PaymentResponse carries the external payment redirect for a created order
type PaymentResponse struct {
	PaymentURL string `json:"payment_url"`
	PaymentID  string `json:"payment_id,omitempty"`
}

// AuthResponse is the service's sign-in/sign-up result
type AuthResponse struct {
	JWT     string `json:"jwt"`
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Profile is the user profile as the service returns it
type Profile struct {
	ID       int64  `json:"id,omitempty"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	Mobile   string `json:"mobile,omitempty"`
}

// RawTransaction is a backend transaction record before normalization.
// Field types are deliberately loose: amounts arrive as numbers or strings,
// dates under either "date" or "timestamp" in several formats.
type RawTransaction struct {
	ID         int64      `json:"id"`
	Amount     *FlexFloat `json:"amount"`
	Type       string     `json:"type"`
	TransferID *int64     `json:"transferId"`
	Purpose    string     `json:"purpose"`
	Date       FlexTime   `json:"date"`
	Timestamp  FlexTime   `json:"timestamp"`
	Status     string     `json:"status"`
}

// When returns the record's effective time, preferring "date" over
// "timestamp", zero when neither parsed.
func (r RawTransaction) When() time.Time {
	if !r.Date.IsZero() {
		return r.Date.Time
	}
	return r.Timestamp.Time
}

// FlexFloat decodes a JSON number or a numeric string.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Unparseable amounts read as NaN; normalization drops the
			// record instead of failing the whole response.
			*f = FlexFloat(math.NaN())
			return nil
		}
		*f = FlexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexTime decodes RFC 3339 timestamps, bare dates and epoch milliseconds.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed
				return nil
			}
		}
		// Unknown formats read as zero time; the record still displays.
		return nil
	}

	var millis int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return nil
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}
