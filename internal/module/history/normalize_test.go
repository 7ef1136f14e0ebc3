package history

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakecombank/teller/internal/gateway/bank"
)

func amt(v float64) *bank.FlexFloat {
	f := bank.FlexFloat(v)
	return &f
}

func at(s string) bank.FlexTime {
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return bank.FlexTime{Time: parsed}
}

func TestNormalize_TypeMappingAndDescriptions(t *testing.T) {
	receiver := int64(7)
	raw := []bank.RawTransaction{
		{ID: 1, Amount: amt(500), Type: "ADD_MONEY", Date: at("2024-05-01T10:00:00Z")},
		{ID: 2, Amount: amt(60), Type: "WALLET_TRANSFER", TransferID: &receiver, Date: at("2024-05-01T09:00:00Z")},
	}

	got := Normalize(raw)
	require.Len(t, got, 2)

	assert.Equal(t, TypeDeposit, got[0].Type)
	assert.Equal(t, "Nạp tiền vào tài khoản", got[0].Description)
	assert.Equal(t, TypeTransfer, got[1].Type)
	assert.Equal(t, "Chuyển tiền đến ví #7", got[1].Description)
}

func TestNormalize_AssetTradesAreWithdrawals(t *testing.T) {
	raw := []bank.RawTransaction{
		{ID: 1, Amount: amt(100), Type: "BUY_ASSET", Date: at("2024-05-01T10:00:00Z")},
		{ID: 2, Amount: amt(40), Type: "SELL_ASSET", Date: at("2024-05-01T09:00:00Z")},
		{ID: 3, Amount: amt(25), Type: "WITHDRAW", Date: at("2024-05-01T08:00:00Z")},
	}

	got := Normalize(raw)
	require.Len(t, got, 3)
	for _, tx := range got {
		assert.Equal(t, TypeWithdrawal, tx.Type)
	}
	assert.Equal(t, "Mua tài sản", got[0].Description)
	assert.Equal(t, "Bán tài sản", got[1].Description)
	assert.Equal(t, "Rút tiền", got[2].Description)
}

func TestNormalize_UnknownTypeFallsBackToTransfer(t *testing.T) {
	raw := []bank.RawTransaction{
		{ID: 1, Amount: amt(10), Type: "SOMETHING_NEW", Date: at("2024-05-01T10:00:00Z")},
	}

	got := Normalize(raw)
	require.Len(t, got, 1)
	assert.Equal(t, TypeTransfer, got[0].Type)
	assert.Equal(t, "Giao dịch", got[0].Description)
}

func TestNormalize_PurposeWinsOverSynthesizedDescription(t *testing.T) {
	raw := []bank.RawTransaction{
		{ID: 1, Amount: amt(10), Type: "ADD_MONEY", Purpose: "Hoàn tiền khuyến mãi", Date: at("2024-05-01T10:00:00Z")},
	}

	got := Normalize(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "Hoàn tiền khuyến mãi", got[0].Description)
}

func TestNormalize_DropsRecordsWithoutIDOrAmount(t *testing.T) {
	raw := []bank.RawTransaction{
		{ID: 0, Amount: amt(10), Type: "ADD_MONEY"},
		{ID: 2, Amount: nil, Type: "ADD_MONEY"},
		{ID: 3, Amount: amt(math.NaN()), Type: "ADD_MONEY"},
		{ID: 4, Amount: amt(10), Type: "ADD_MONEY", Date: at("2024-05-01T10:00:00Z")},
	}

	got := Normalize(raw)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].ID)
}

func TestNormalize_SortsNewestFirstAndTruncates(t *testing.T) {
	raw := make([]bank.RawTransaction, 0, 7)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		raw = append(raw, bank.RawTransaction{
			ID:     int64(i + 1),
			Amount: amt(float64(i + 1)),
			Type:   "ADD_MONEY",
			Date:   bank.FlexTime{Time: base.Add(time.Duration(i) * time.Hour)},
		})
	}

	got := Normalize(raw)
	require.Len(t, got, MaxRecent)
	assert.Equal(t, int64(7), got[0].ID)
	assert.Equal(t, int64(3), got[len(got)-1].ID)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Timestamp.After(got[i].Timestamp))
	}
}

func TestNormalize_StatusDefaultsToCompleted(t *testing.T) {
	raw := []bank.RawTransaction{
		{ID: 1, Amount: amt(10), Type: "ADD_MONEY", Date: at("2024-05-01T10:00:00Z")},
		{ID: 2, Amount: amt(10), Type: "ADD_MONEY", Status: "PENDING", Date: at("2024-05-01T09:00:00Z")},
		{ID: 3, Amount: amt(10), Type: "ADD_MONEY", Status: "WEIRD", Date: at("2024-05-01T08:00:00Z")},
	}

	got := Normalize(raw)
	require.Len(t, got, 3)
	assert.Equal(t, StatusCompleted, got[0].Status)
	assert.Equal(t, StatusPending, got[1].Status)
	assert.Equal(t, StatusCompleted, got[2].Status)
}

func TestNormalize_TimestampFieldUsedWhenDateAbsent(t *testing.T) {
	raw := []bank.RawTransaction{
		{ID: 1, Amount: amt(10), Type: "ADD_MONEY", Timestamp: at("2024-05-02T10:00:00Z")},
		{ID: 2, Amount: amt(10), Type: "ADD_MONEY", Date: at("2024-05-01T10:00:00Z")},
	}

	got := Normalize(raw)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
}
