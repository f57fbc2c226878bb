package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-sync/src/logger"
	"trade-sync/src/models"
	"trade-sync/src/testbackend"
)

// -----------------------------------------------------------------------------

// main serves the fake trading backend for local runs of the client: a demo
// user, a few markets, a random-walk price feed and one command that needs
// confirmation ("buy 1 BTC").
func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	email := flag.String("user", "demo@example.com", "demo user email")
	password := flag.String("password", "demo", "demo user password")
	interval := flag.Duration("tick", 500*time.Millisecond, "price tick interval")
	live := flag.Bool("kraken", false, "accept switches to LIVE mode")
	flag.Parse()

	appLogger := logger.NewLogger("INFO", "fakebackend")

	backend := testbackend.New(appLogger)
	backend.Markets = []string{"BTC-USD", "ETH-USD", "SOL-USD"}
	backend.KrakenConnected = *live
	backend.AddUser(*email, *password)
	backend.CommandReplies["buy 1 BTC"] = models.MCommandResponse{
		Success:              true,
		RequiresConfirmation: true,
		ConfirmationMessage:  "Confirm buy 1 BTC at market?",
	}

	prices := map[string]float64{"BTC-USD": 65000, "ETH-USD": 3200, "SOL-USD": 150}
	latest := map[string]testbackend.Ticker{}
	for symbol, last := range prices {
		last := last
		latest[symbol] = testbackend.Ticker{Symbol: symbol, Last: &last, TsEpochMs: time.Now().UnixMilli()}
	}
	backend.Latest = latest

	srv := &http.Server{Addr: *addr, Handler: backend.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go randomWalk(ctx, backend, prices, *interval)

	go func() {
		appLogger.Info("Fake backend on http://%s (user %s / %s)", *addr, *email, *password)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("Fake backend failed: %v\n", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	backend.DropStreams()
	srv.Shutdown(shutdownCtx)
}

// -----------------------------------------------------------------------------

// randomWalk pushes one tick per symbol every interval.
func randomWalk(ctx context.Context, backend *testbackend.Backend, prices map[string]float64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for symbol, last := range prices {
			next := last * (1 + (rand.Float64()-0.5)/500)
			prices[symbol] = next
			bid, ask := next*0.9995, next*1.0005
			backend.PushTick(models.MTick{
				Symbol:    symbol,
				Last:      &next,
				Bid:       &bid,
				Ask:       &ask,
				Timestamp: time.Now().UnixMilli(),
			})
		}
	}
}
