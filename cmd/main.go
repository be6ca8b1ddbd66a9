package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/kpi-visual-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(application.Cfg.Address())
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		application.Log.Info("Shutting down", "signal", s.String())
	case err := <-errCh:
		if err != nil {
			application.Log.Error("Server failed", "error", err)
		}
	}
}
