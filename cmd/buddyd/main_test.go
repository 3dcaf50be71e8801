package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/buddyvoice/buddy/pkg/gateway/config"
	gatewayserver "github.com/buddyvoice/buddy/pkg/gateway/server"
)

func TestRunGatewayMissingDeps(t *testing.T) {
	err := runGateway(context.Background(), slog.Default(), gatewayDeps{})
	if err == nil {
		t.Fatalf("runGateway with empty deps err=nil, want error")
	}
}

func TestRunMainSignalShutdown(t *testing.T) {
	var sigCh chan<- os.Signal
	notified := make(chan struct{})

	deps := gatewayDeps{
		loadConfig: func() config.Config {
			return config.Config{
				ListenAddr:      "127.0.0.1:0",
				GeminiModel:     "gemini-1.5-flash",
				ShutdownTimeout: time.Second,
				Secrets:         map[string]string{},
			}
		},
		newGateway: gatewayserver.New,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			sigCh = c
			close(notified)
		},
		signalStop: func(chan<- os.Signal) {},
	}

	done := make(chan int, 1)
	var stderr bytes.Buffer
	go func() {
		done <- runMain(context.Background(), &stderr, deps)
	}()

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatalf("signal handler never registered")
	}
	sigCh <- os.Interrupt

	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("exit code=%d, stderr=%s", code, stderr.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runMain did not return after signal")
	}
}

func TestRunGatewayContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	deps := defaultGatewayDeps()
	deps.loadConfig = func() config.Config {
		return config.Config{
			ListenAddr:      "127.0.0.1:0",
			GeminiModel:     "gemini-1.5-flash",
			ShutdownTimeout: time.Second,
			Secrets:         map[string]string{},
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- runGateway(ctx, slog.Default(), deps)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("err=nil, want context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runGateway did not return after cancel")
	}
}
