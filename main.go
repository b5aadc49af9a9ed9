// SPDX-License-Identifier: MIT
package main

import (
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"micscope/cmd"
	"micscope/internal/audio"
	"micscope/internal/config"
	applog "micscope/internal/log"
	"micscope/internal/state"
	"micscope/internal/transport"
	"micscope/internal/transport/udp"
	"micscope/internal/tui"
	"micscope/pkg/build"
)

// main wires the capture-analyze-render pipeline. The program flow has
// three phases:
//
// 1. Startup: build info, configuration, PortAudio init, one-off commands.
// 2. Live: the session captures and analyzes while observers (terminal
//    meter, WebSocket, UDP) read the presentation state.
// 3. Shutdown: stop the session and release audio resources, idempotently.
func main() {
	// ==================== STARTUP ====================

	build.Initialize()

	// One thread for the audio callback, one for observers and I/O.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	// One-off commands that don't need the session running.
	if cfg.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// ==================== LIVE ====================

	st := state.NewState(cfg.Analysis.Bands)
	session, err := audio.NewSession(cfg, st)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	broadcaster := startObservers(cfg, st)
	if broadcaster != nil {
		defer broadcaster.Close()
	}

	if cfg.Headless {
		runHeadless(session)
	} else {
		if err := tui.Run(session, st, 33*time.Millisecond); err != nil {
			applog.Errorf("UI error: %v", err)
		}
	}

	// ==================== SHUTDOWN ====================

	session.Stop()
}

// startObservers wires the configured external observers into one
// broadcaster. Returns nil when no transport is enabled.
func startObservers(cfg *config.Config, st *state.State) *transport.Broadcaster {
	var transports []transport.Transport

	if cfg.Transport.WSEnabled {
		transports = append(transports,
			transport.NewWebSocketTransport(cfg.Transport.WSAddr, cfg.Transport.UDPSendInterval))
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Errorf("UDP transport disabled: %v", err)
		} else {
			mt, err := udp.NewMetricsTransport(sender, cfg.Analysis.Bands)
			if err != nil {
				applog.Errorf("UDP transport disabled: %v", err)
				sender.Close()
			} else {
				transports = append(transports, mt)
			}
		}
	}
	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport())
	}

	if len(transports) == 0 {
		return nil
	}

	b := transport.NewBroadcaster(cfg.Transport.UDPSendInterval,
		func() any { return st.Snapshot() }, transports...)
	b.Start()
	return b
}

// runHeadless starts the session and blocks until SIGINT/SIGTERM.
func runHeadless(session *audio.Session) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	if err := session.Start(); err != nil {
		applog.Errorf("Start failed: %v", err)
		// The session stays stopped; the error is already published.
	}

	<-done
}
