package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/fakecombank/teller/internal/shared/errors"

	"github.com/fakecombank/teller/internal/module/history"
	"github.com/fakecombank/teller/pkg/money"
)

func userMessage(err error) string {
	return apperrors.UserMessage(err)
}

func promptPassword(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) requireSession() error {
	if !a.session.Authenticated() {
		return apperrors.Unauthorized("Vui lòng đăng nhập trước (teller login <email>)")
	}
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return apperrors.Validation("Cách dùng: teller register <họ tên> <email>")
	}
	fullName, email := args[0], args[1]

	password, err := promptPassword("Mật khẩu")
	if err != nil {
		return err
	}

	profile, err := a.session.SignUp(ctx, fullName, email, password, "")
	if err != nil {
		return err
	}

	fmt.Printf("Đăng ký thành công. Xin chào, %s!\n", profile.FullName)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return apperrors.Validation("Cách dùng: teller login <email>")
	}

	password, err := promptPassword("Mật khẩu")
	if err != nil {
		return err
	}

	profile, err := a.session.SignIn(ctx, args[0], password)
	if err != nil {
		return err
	}

	fmt.Printf("Đăng nhập thành công. Xin chào, %s!\n", profile.FullName)
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Println("Đã đăng xuất.")
	return nil
}

func (a *app) cmdProfile(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	profile, err := a.client.GetProfile(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Họ tên:  %s\n", profile.FullName)
	fmt.Printf("Email:   %s\n", profile.Email)
	if profile.Mobile != "" {
		fmt.Printf("Di động: %s\n", profile.Mobile)
	}
	return nil
}

func (a *app) cmdBalance(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	value, fresh, err := a.balance.Refresh(ctx)
	if err != nil {
		return err
	}

	if fresh {
		fmt.Printf("Số dư: %s\n", money.FormatUSD(value))
	} else {
		fmt.Printf("Số dư: %s (giá trị lưu cục bộ, máy chủ không phản hồi)\n", money.FormatUSD(value))
	}
	return nil
}

func (a *app) cmdDeposit(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) < 2 {
		return apperrors.Validation("Cách dùng: teller deposit <phương thức> <số tiền>")
	}

	amount, err := money.ParseAmount(args[1])
	if err != nil {
		return apperrors.Validation("Số tiền nạp không hợp lệ")
	}

	order, err := a.deposit.Start(ctx, args[0], amount)
	if err != nil {
		return err
	}

	fmt.Printf("Đã tạo đơn nạp %s qua %s.\n", money.FormatUSD(order.Amount), order.Method)
	fmt.Printf("Mở liên kết sau để thanh toán:\n  %s\n", order.RedirectURL)
	fmt.Println("Sau khi thanh toán, chạy: teller confirm <order_id> <payment_id>")
	return nil
}

func (a *app) cmdConfirm(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) < 2 {
		return apperrors.Validation("Cách dùng: teller confirm <order_id> <payment_id>")
	}

	newBalance, err := a.deposit.Confirm(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Nạp tiền thành công. Số dư mới: %s\n", money.FormatUSD(newBalance))
	return nil
}

func (a *app) cmdTransfer(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) < 2 {
		return apperrors.Validation("Cách dùng: teller transfer <id ví> <số tiền> [nội dung]")
	}

	amount, err := money.ParseAmount(args[1])
	if err != nil {
		return apperrors.Validation("Số tiền chuyển không hợp lệ")
	}
	purpose := strings.Join(args[2:], " ")

	receipt, err := a.transfer.Send(ctx, args[0], amount, purpose)
	if err != nil {
		return err
	}

	fmt.Printf("Đã chuyển %s đến ví #%s. Số dư mới: %s\n",
		money.FormatUSD(receipt.Amount), receipt.ReceiverID, money.FormatUSD(receipt.NewBalance))
	return nil
}

func (a *app) cmdHistory(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	raw, err := a.client.ListTransactions(ctx)
	if err != nil {
		return err
	}

	txs := history.Normalize(raw)
	if len(txs) == 0 {
		fmt.Println("Chưa có giao dịch nào.")
		return nil
	}

	for _, tx := range txs {
		sign := "+"
		if tx.Type == history.TypeWithdrawal || tx.Type == history.TypeTransfer {
			sign = "-"
		}
		fmt.Printf("%s  %s%s  %-10s  %s\n",
			tx.Timestamp.Format("2006-01-02 15:04"),
			sign, money.FormatUSD(tx.Amount),
			tx.Type, tx.Description)
	}
	return nil
}

// cmdWatch follows the balance as other views change it, until interrupted.
func (a *app) cmdWatch(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	value, _, err := a.balance.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Số dư: %s\n", money.FormatUSD(value))

	unsubscribe := a.balance.Subscribe(func(newBalance float64) {
		fmt.Printf("Số dư: %s\n", money.FormatUSD(newBalance))
	})
	defer unsubscribe()

	stop, err := a.balance.Listen(ctx)
	if err != nil {
		return err
	}
	defer stop()

	<-ctx.Done()
	return nil
}

func (a *app) cmdCoins(ctx context.Context, args []string) error {
	action := "top"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "top":
		coins, err := a.market.GetTopCoins(ctx)
		if err != nil {
			return err
		}
		for _, c := range coins {
			fmt.Printf("%-12s %-6s %14s  %+.2f%%\n",
				c.ID, strings.ToUpper(c.Symbol), money.FormatUSD(c.CurrentPrice), c.PriceChangePercentage24h)
		}
		return nil

	case "trending":
		trending, err := a.market.GetTrendingCoins(ctx)
		if err != nil {
			return err
		}
		for _, c := range trending.Coins {
			fmt.Printf("#%-3d %-12s %-6s %s\n",
				c.Item.MarketCapRank, c.Item.ID, strings.ToUpper(c.Item.Symbol), c.Item.Name)
		}
		return nil

	case "detail":
		if len(args) < 2 {
			return apperrors.Validation("Cách dùng: teller coins detail <coin_id>")
		}
		details, err := a.market.GetCoinDetails(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", details.Name, strings.ToUpper(details.Symbol))
		fmt.Printf("Giá:       %s\n", money.FormatUSD(details.MarketData.CurrentPrice["usd"]))
		fmt.Printf("Vốn hóa:   %s\n", money.FormatUSD(details.MarketData.MarketCap["usd"]))
		fmt.Printf("24h:       %+.2f%%\n", details.MarketData.PriceChangePercentage24h)
		return nil

	case "chart":
		if len(args) < 2 {
			return apperrors.Validation("Cách dùng: teller coins chart <coin_id> [số ngày]")
		}
		days := 7
		if len(args) > 2 {
			parsed, err := strconv.Atoi(args[2])
			if err != nil || parsed <= 0 {
				return apperrors.Validation("Số ngày không hợp lệ")
			}
			days = parsed
		}
		chart, err := a.market.GetMarketChart(ctx, args[1], days)
		if err != nil {
			return err
		}
		for _, point := range chart.Prices {
			at := time.UnixMilli(int64(point[0])).UTC()
			fmt.Printf("%s  %s\n", at.Format("2006-01-02 15:04"), money.FormatUSD(point[1]))
		}
		return nil

	case "search":
		if len(args) < 2 {
			return apperrors.Validation("Cách dùng: teller coins search <từ khóa>")
		}
		results, err := a.market.SearchCoins(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if len(results.Coins) == 0 {
			fmt.Println("Không tìm thấy kết quả nào.")
			return nil
		}
		for _, c := range results.Coins {
			fmt.Printf("%-12s %-6s %s\n", c.ID, strings.ToUpper(c.Symbol), c.Name)
		}
		return nil

	default:
		return apperrors.Validation("Cách dùng: teller coins [top|trending|detail|chart|search]")
	}
}

func (a *app) cmdPortfolio(ctx context.Context) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	holdings, err := a.trading.Holdings(ctx)
	if err != nil {
		return err
	}
	if len(holdings) == 0 {
		fmt.Println("Bạn chưa sở hữu loại tiền điện tử nào.")
		return nil
	}

	total := 0.0
	for coinID, quantity := range holdings {
		price, err := a.market.CurrentPriceUSD(ctx, coinID)
		if err != nil {
			fmt.Printf("%-12s %s (không lấy được giá)\n", coinID, money.FormatQuantity(quantity))
			continue
		}
		value := price * quantity
		total += value
		fmt.Printf("%-12s %s  =  %s\n", coinID, money.FormatQuantity(quantity), money.FormatUSD(value))
	}
	fmt.Printf("Tổng giá trị: %s\n", money.FormatUSD(total))
	return nil
}

func (a *app) cmdBuy(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) < 2 {
		return apperrors.Validation("Cách dùng: teller buy <coin_id> <số lượng>")
	}

	quantity, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return apperrors.Validation("Số lượng không hợp lệ")
	}

	trade, err := a.trading.Buy(ctx, args[0], quantity)
	if err != nil {
		return err
	}

	fmt.Printf("Đã mua %s %s với giá %s. Số dư mới: %s\n",
		money.FormatQuantity(trade.Quantity), strings.ToUpper(trade.CoinID),
		money.FormatUSD(trade.TotalUSD), money.FormatUSD(trade.NewBalance))
	return nil
}

func (a *app) cmdSell(ctx context.Context, args []string) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if len(args) < 2 {
		return apperrors.Validation("Cách dùng: teller sell <coin_id> <số lượng>")
	}

	quantity, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return apperrors.Validation("Số lượng không hợp lệ")
	}

	trade, err := a.trading.Sell(ctx, args[0], quantity)
	if err != nil {
		return err
	}

	fmt.Printf("Đã bán %s %s thu về %s. Số dư mới: %s\n",
		money.FormatQuantity(trade.Quantity), strings.ToUpper(trade.CoinID),
		money.FormatUSD(trade.TotalUSD), money.FormatUSD(trade.NewBalance))
	return nil
}
