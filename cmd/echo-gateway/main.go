// Command echo-gateway is the shipped example binary: a SoupBinTCP Svc
// that echoes every Debug packet and, with -require-login, answers each
// LoginRequest with LoginAccepted, driven by the framework's shared poll
// handler and heartbeat timer (spec.md §6 end-to-end scenarios).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kstaniek/go-wireframe/internal/metrics"
	"github.com/kstaniek/go-wireframe/internal/poller"
	"github.com/kstaniek/go-wireframe/internal/soupbin"
	"github.com/kstaniek/go-wireframe/internal/svc"
	"github.com/kstaniek/go-wireframe/internal/timer"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("echo-gateway %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	msgr := soupbin.NewMessenger(cfg.maxFrameSize)
	f := soupbin.NewFramer(cfg.maxFrameSize)

	proto := &soupbin.ServerProtocol{
		Echo:            true,
		AutoAcceptLogin: cfg.requireLogin,
		HeartbeatEvery:  cfg.heartbeatEvery,
		InputTimeout:    cfg.inputTimeout,
	}

	s := svc.New[soupbin.Packet, soupbin.Packet](f, msgr,
		svc.WithName[soupbin.Packet, soupbin.Packet]("echo-gateway"),
		svc.WithMaxConnections[soupbin.Packet, soupbin.Packet](cfg.maxConnections),
		svc.WithProtocol[soupbin.Packet, soupbin.Packet](proto),
		svc.WithLogger[soupbin.Packet, soupbin.Packet](l),
	)

	ph, err := poller.Spawn("Default-RecvPollHandler-Thread")
	if err != nil {
		l.Error("poller_spawn_error", "error", err)
		return
	}
	defer ph.Shutdown(5 * time.Second)

	hbTimer := timer.New("Default-HeartbeatHandler-Thread")
	defer hbTimer.Shutdown()
	if cfg.heartbeatEvery > 0 || cfg.inputTimeout > 0 {
		hbTimer.Schedule(func() timer.ShouldContinue {
			s.CheckHeartbeatsAndTimeouts()
			return timer.Continue
		}, 50*time.Millisecond, 50*time.Millisecond)
	}

	if err := s.Bind(ctx, cfg.listenAddr); err != nil {
		l.Error("bind_error", "error", err)
		return
	}
	if err := s.PoolAccept(ph); err != nil {
		l.Error("pool_accept_error", "error", err)
		return
	}

	go func() {
		if !cfg.mdnsEnable {
			return
		}
		select {
		case <-s.Ready():
		case <-ctx.Done():
			return
		}
		addr := s.Addr()
		var portNum int
		if _, p, err := net.SplitHostPort(addr); err == nil {
			if pn, perr := strconv.Atoi(p); perr == nil {
				portNum = pn
			}
		}
		if portNum == 0 {
			if i := strings.LastIndex(addr, ":"); i >= 0 {
				if pn, perr := strconv.Atoi(addr[i+1:]); perr == nil {
					portNum = pn
				}
			}
		}
		cleanupMDNS, err := startMDNS(ctx, cfg, portNum)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
			return
		}
		l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", portNum)
		go func() { <-ctx.Done(); cleanupMDNS() }()
	}()

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-s.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	l.Info("echo_gateway_ready", "addr", s.Addr())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	l.Info("shutdown_signal", "signal", sig.String())
	cancel()
	_ = s.Shutdown(5 * time.Second)
	wg.Wait()
}
