// Copyright 2024 The Phievse Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// phievsed runs the charging control kernel against a real board, accepting
// SetMaxPower/Shutdown commands as framed binary messages on a TCP
// listener, and serving a read-only JSON status endpoint over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phievse.dev/firmware/adcsrc"
	"phievse.dev/firmware/alarm"
	"phievse.dev/firmware/board"
	"phievse.dev/firmware/boardcfg"
	"phievse.dev/firmware/command"
	"phievse.dev/firmware/conn/gpio"
	"phievse.dev/firmware/controller"
	"phievse.dev/firmware/relay"
	"phievse.dev/firmware/watchdog"
)

func mainImpl() error {
	configPath := flag.String("config", "", "board config YAML (optional; defaults applied otherwise)")
	commandAddr := flag.String("command-addr", "127.0.0.1:6851", "TCP address framed command.Command messages are read from")
	statusAddr := flag.String("status-addr", "127.0.0.1:6852", "HTTP address the read-only status endpoint is served on")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))

	cfg, err := boardcfg.Load(*configPath)
	if err != nil {
		return fmt.Errorf("phievsed: load config: %w", err)
	}

	hw, err := board.Open()
	if err != nil {
		return fmt.Errorf("phievsed: %w", err)
	}

	peripherals := controller.Peripherals{
		RelayMain:     relay.New(hw.RelayMain),
		Relay3Phase:   relay.New(hw.Relay3Phase),
		Analog:        adcsrc.NewDMADriver(hw.Bus, cfg.ChannelPinMap, log),
		PilotNegative: alarm.NewEdgePin(hw.PilotNegative, gpio.FallingEdge),
		ControlPilot:  hw.ControlPilot,
		Watchdog:      watchdog.NewHardware(hw.WatchdogRegister),
	}

	ctrl := controller.New(peripherals, log)
	ctrl.SetWatchdogTimeout(time.Duration(cfg.WatchdogTimeoutS) * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdLis, err := net.Listen("tcp", *commandAddr)
	if err != nil {
		return fmt.Errorf("phievsed: command listener: %w", err)
	}
	defer cmdLis.Close()
	go serveCommands(ctx, cmdLis, ctrl, log)

	statusSrv := &http.Server{Addr: *statusAddr, Handler: statusHandler(ctrl)}
	go func() {
		if err := statusSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("status server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = statusSrv.Shutdown(shutdownCtx)
	}()

	log.Info("phievsed starting", "command_addr", *commandAddr, "status_addr", *statusAddr)
	return ctrl.Run(ctx)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// serveCommands accepts one framed command.Command per connection: the
// field controller is driven by is a fire-and-forget channel, so there is
// no response to write beyond closing the connection once the frame has
// been decoded and enqueued.
func serveCommands(ctx context.Context, lis net.Listener, ctrl *controller.Controller, log *slog.Logger) {
	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()
	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("command accept failed", "error", err)
			continue
		}
		go handleCommandConn(conn, ctrl, log)
	}
}

func handleCommandConn(conn net.Conn, ctrl *controller.Controller, log *slog.Logger) {
	defer conn.Close()
	frame := make([]byte, 8)
	if _, err := io.ReadFull(conn, frame); err != nil {
		log.Warn("command read failed", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	cmd, err := command.DecodeFrame(frame)
	if err != nil {
		log.Warn("command decode failed", "remote", conn.RemoteAddr(), "error", err)
		return
	}
	select {
	case ctrl.Commands() <- cmd:
	default:
		log.Error("command channel full, dropping command", "remote", conn.RemoteAddr())
	}
}

func statusHandler(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ctrl.Status())
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "phievsed: %s.\n", err)
		os.Exit(1)
	}
}
