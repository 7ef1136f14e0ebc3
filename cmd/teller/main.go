// Command teller is the terminal client for Fakecombank. Every running
// teller process is one independent view of the account: views share the
// durable local store and converge on balance changes through the
// notifier, while the wallet service stays the only authority on money.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fakecombank/teller/internal/gateway/bank"
	"github.com/fakecombank/teller/internal/gateway/marketdata"
	"github.com/fakecombank/teller/internal/localstore"
	"github.com/fakecombank/teller/internal/module/deposit"
	"github.com/fakecombank/teller/internal/module/trading"
	"github.com/fakecombank/teller/internal/module/transfer"
	"github.com/fakecombank/teller/internal/notify"
	"github.com/fakecombank/teller/internal/platform/balance"
	"github.com/fakecombank/teller/internal/platform/session"
	"github.com/fakecombank/teller/pkg/config"
	"github.com/fakecombank/teller/pkg/logger"
)

const usage = `teller - Fakecombank terminal client

Usage:
  teller <command> [arguments]

Account:
  register <full name> <email>   create an account (password prompted)
  login <email>                  sign in (password prompted)
  logout                         sign out and clear the stored session
  profile                        show the signed-in user's profile

Wallet:
  balance                        show the wallet balance
  deposit <method> <amount>      start a top-up via an external provider
  confirm <order_id> <payment_id>  confirm a provider callback
  transfer <wallet_id> <amount> [purpose]  send money to another wallet
  history                        show recent transactions
  watch                          follow balance changes from all views

Crypto:
  coins [top|trending]           list the market
  coins detail <coin_id>         show one coin
  coins chart <coin_id> [days]   show the price history
  coins search <keyword>         search coins by name or symbol
  portfolio                      show owned coins
  buy <coin_id> <quantity>       buy with wallet funds
  sell <coin_id> <quantity>      sell back into the wallet
`

// app bundles everything a command needs.
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	client   *bank.Client
	market   *marketdata.Client
	store    localstore.Store
	notifier notify.Notifier
	session  *session.Manager
	balance  *balance.Store
	deposit  *deposit.Flow
	transfer *transfer.Service
	trading  *trading.Service
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)

	a, cleanup := newApp(ctx, cfg, log)
	defer cleanup()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

// newApp wires the client stack. Redis backs the shared store and the
// cross-view notifier; when it is unreachable the view still works alone
// on an in-process store with broadcasts disabled.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, func()) {
	a := &app{cfg: cfg, logger: log}
	cleanup := func() {}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, this view runs detached", "error", err)
		redisClient.Close()
		a.store = localstore.NewMemoryStore()
		a.notifier = notify.Noop{}
	} else {
		a.store = localstore.NewRedisStore(redisClient)
		a.notifier = notify.NewRedisNotifier(redisClient, log)
		cleanup = func() { redisClient.Close() }
	}

	// The client and the session reference each other: the client reads
	// the session's credential, the session clears it on a 401.
	a.client = bank.NewClient(cfg.BankURL,
		bank.WithTimeout(cfg.RequestTimeout),
		bank.WithTokenSource(func() string {
			if a.session == nil {
				return ""
			}
			return a.session.Token()
		}),
		bank.WithUnauthorizedHook(func() {
			if a.session != nil {
				a.session.HandleUnauthorized()
			}
		}),
	)
	a.market = marketdata.NewClient(cfg.MarketDataURL)

	a.session = session.NewManager(a.client, a.store, log)
	a.session.Restore(ctx)

	a.balance = balance.NewStore(a.client, a.store, a.notifier, log,
		balance.WithCacheFallback(cfg.FallbackToCache))
	a.deposit = deposit.NewFlow(a.client, a.balance, log)
	a.transfer = transfer.NewService(a.client, a.balance, log)
	a.trading = trading.NewService(a.balance, a.store, a.notifier, a.market, log)

	return a, cleanup
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.cmdRegister(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "profile":
		return a.cmdProfile(ctx)
	case "balance":
		return a.cmdBalance(ctx)
	case "deposit":
		return a.cmdDeposit(ctx, args)
	case "confirm":
		return a.cmdConfirm(ctx, args)
	case "transfer":
		return a.cmdTransfer(ctx, args)
	case "history":
		return a.cmdHistory(ctx)
	case "watch":
		return a.cmdWatch(ctx)
	case "coins":
		return a.cmdCoins(ctx, args)
	case "portfolio":
		return a.cmdPortfolio(ctx)
	case "buy":
		return a.cmdBuy(ctx, args)
	case "sell":
		return a.cmdSell(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
