// Command cekresi performs a single waybill lookup and prints the reply text.
//
//	cekresi ANTERAJA 10008447322101
//	cekresi "SHOPEE EXPRESS" SPXID0123456789
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resi-tracker/internal/core/config"
	"resi-tracker/internal/core/logger"
	trackingadapter "resi-tracker/internal/features/tracking/adapters"
	"resi-tracker/internal/features/tracking/domain"
	"resi-tracker/internal/features/tracking/presenter"
	trackingservice "resi-tracker/internal/features/tracking/service"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, `usage: cekresi <carrier> <waybill>`)
		os.Exit(2)
	}

	os.Exit(run(os.Args[1], os.Args[2]))
}

func run(carrier, waybill string) int {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher, err := trackingadapter.NewCekResiAdapter(trackingadapter.CekResiOptions{
		BaseURL:       cfg.CekResi.BaseURL,
		WaitTimeout:   cfg.CekResi.WaitTimeout,
		LookupTimeout: cfg.CekResi.LookupTimeout,
		BrowserBin:    cfg.CekResi.BrowserBin,
		Headless:      cfg.CekResi.Headless,
		Stealth:       cfg.CekResi.Stealth,
		Proxy:         cfg.Proxy.Settings(),
	})
	if err != nil {
		logger.Get().Error("Failed to configure aggregator driver", zap.Error(err))
		return 1
	}

	svc := trackingservice.NewTrackingService(
		domain.MustNewRegistry(domain.DefaultExpeditions()),
		fetcher,
		trackingadapter.NewCekResiParser(),
	)

	result, err := svc.Lookup(ctx, carrier, waybill)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCarrier) {
			fmt.Fprintf(os.Stderr, "Carrier %q is not supported. Available:\n", carrier)
			for _, name := range svc.Expeditions() {
				fmt.Fprintf(os.Stderr, "  %s\n", name)
			}
			return 2
		}
		logger.Get().Error("Lookup failed", zap.Error(err))
		return 1
	}

	if !result.Success {
		fmt.Println(result.Text)
		return 3
	}
	// The chat reply is MarkdownV2-escaped; terminals get the plain table.
	fmt.Print(presenter.RenderTable(result.Outcome.History))
	return 0
}
