package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atendoteam/atendo-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		application.Log.Info("Shutdown signal received")
		application.Close()
		os.Exit(0)
	}()

	application.Log.Info("Starting HTTP server", "addr", application.Cfg.HTTPAddr)
	if err := application.Run(application.Cfg.HTTPAddr); err != nil {
		application.Log.Error("HTTP server exited", "error", err)
		os.Exit(1)
	}
}
