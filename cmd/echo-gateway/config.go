package main

import (
	"flag"
	"time"
)

type appConfig struct {
	listenAddr      string
	logFormat       string
	logLevel        string
	metricsAddr     string
	maxConnections  int
	connectTimeout  time.Duration
	heartbeatEvery  time.Duration
	inputTimeout    time.Duration
	logMetricsEvery time.Duration
	maxFrameSize    int
	requireLogin    bool
	loginUser       string
	loginPass       string
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	listen := flag.String("listen", ":20100", "TCP listen address")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	maxConnections := flag.Int("max-connections", 0, "Maximum simultaneous connections (0 = unlimited)")
	connectTimeout := flag.Duration("connect-timeout", 5*time.Second, "Client connect+login timeout")
	heartbeatEvery := flag.Duration("heartbeat-interval", 0, "If >0, send a heartbeat after this much idle send time")
	inputTimeout := flag.Duration("input-timeout", 0, "If >0, drop a connection after this much idle recv time")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	maxFrameSize := flag.Int("max-frame-size", 64*1024, "Maximum SoupBinTCP frame size in bytes")
	requireLogin := flag.Bool("require-login", false, "Answer every LoginRequest with LoginAccepted (Debug packets are echoed with or without a login)")
	loginUser := flag.String("login-user", "", "Username for LoginRequest (not checked: every LoginRequest is accepted)")
	loginPass := flag.String("login-pass", "", "Password for LoginRequest (not checked: every LoginRequest is accepted)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default echo-gateway-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	cfg.listenAddr = *listen
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.maxConnections = *maxConnections
	cfg.connectTimeout = *connectTimeout
	cfg.heartbeatEvery = *heartbeatEvery
	cfg.inputTimeout = *inputTimeout
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.maxFrameSize = *maxFrameSize
	cfg.requireLogin = *requireLogin
	cfg.loginUser = *loginUser
	cfg.loginPass = *loginPass
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	return cfg, *showVersion
}
