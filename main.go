package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/itbasis/go-clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"livescore-client/catalog"
	"livescore-client/config"
	"livescore-client/logger"
	"livescore-client/models"
	"livescore-client/realtime"
	"livescore-client/services"
	"livescore-client/storage"
)

func main() {
	if err := run(); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		logger.Fatalf("%v", err)
	}
}

func run() error {
	// 加载配置
	cfg := config.Load()

	var (
		matchID    string
		transport  string
		backend    string
		catPath    string
		replay     string
		metricsAt  string
		clearFirst bool
		list       bool
	)

	flags := pflag.NewFlagSet("livescore", pflag.ContinueOnError)
	flags.StringVarP(&matchID, "match", "m", cfg.DefaultMatchID, "match id to follow")
	flags.StringVarP(&transport, "transport", "t", cfg.Transport, "real-time transport: ws, mqtt, amqp or loopback")
	flags.StringVar(&backend, "store", cfg.StoreBackend, "local store: file, postgres or memory")
	flags.StringVar(&catPath, "catalog", cfg.CatalogPath, "YAML match catalog (default: built-in fixtures)")
	flags.StringVar(&replay, "replay", "", "feed events from a JSON-lines file instead of a live transport")
	flags.StringVar(&metricsAt, "metrics-addr", cfg.MetricsAddr, "serve prometheus metrics on this address, e.g. :9100")
	flags.BoolVar(&clearFirst, "clear", false, "clear the stored events of the match before following it")
	flags.BoolVar(&list, "list", false, "list the catalog and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cat, err := catalog.Load(catPath)
	if err != nil {
		return err
	}
	if list {
		for _, m := range cat.Matches {
			fmt.Printf("%s  %s  (%s, %s)\n", m.ID, m.Title(), m.Stadium, m.Status)
		}
		return nil
	}

	// 打开本地存储
	local, release, err := storage.Open(backend, cfg.StorePath, cfg.DatabaseURL, "viewer")
	if err != nil {
		logger.Errorf("Failed to open %s store, keeping history in memory: %v", backend, err)
		local, release = storage.NewMemoryStore(), func() error { return nil }
	}
	defer release()
	store := storage.NewService(local, nil)

	// 认证会话提供 websocket token
	auth := services.NewAuthService(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout}, store, clock.New())

	if replay != "" {
		transport = realtime.TransportLoopback
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	channel, closeChannel, err := realtime.Dial(ctx, realtime.DialOptions{
		Transport:  transport,
		SocketURL:  cfg.SocketURL,
		Token:      auth.GetToken(),
		MQTTBroker: cfg.MQTTBroker,
		MQTTUser:   cfg.MQTTUser,
		MQTTPass:   cfg.MQTTPass,
		AMQPURL:    cfg.AMQPURL,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect %s transport: %w", transport, err)
	}
	defer closeChannel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)
	if metricsAt != "" {
		addr, stop, err := serveMetrics(metricsAt, reg)
		if err != nil {
			logger.Errorf("Metrics disabled: %v", err)
		} else {
			logger.Printf("Serving metrics on %s/metrics", addr)
			defer stop()
		}
	}

	live := services.NewLiveMatchService(channel, store, cat, metrics)
	live.OnUpdate(render)

	if err := live.SelectMatch(matchID); err != nil {
		logger.Errorf("Subscribe failed, showing stored history only: %v", err)
	}
	defer live.Teardown()

	if clearFirst {
		live.Clear(stdinConfirm)
	}

	if replay != "" {
		lb, ok := channel.(*realtime.Loopback)
		if !ok {
			return fmt.Errorf("replay needs the loopback transport")
		}
		n, err := replayFile(replay, lb)
		if err != nil {
			return err
		}
		logger.Printf("Replayed %d events from %s", n, replay)
		return nil
	}

	logger.Println("Following match. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down viewer...")
	return nil
}

// render prints the scoreboard and the newest feed entries.
func render(snap services.LiveSnapshot) {
	home, away := snap.State.MatchID, ""
	if snap.Match != nil {
		home = snap.Match.HomeFlag + " " + snap.Match.HomeTeam
		away = snap.Match.AwayTeam + " " + snap.Match.AwayFlag
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s  %d - %d  %s   %d'  %s\n", home, snap.State.Score.Home, snap.State.Score.Away, away,
		snap.State.Minute, snap.State.PhaseLabel)
	if snap.Match != nil {
		fmt.Fprintf(&b, "🏟️  %s\n", snap.Match.Stadium)
	}

	shown := snap.Events
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, e := range shown {
		minute := "  "
		if e.Data.Minute != nil {
			minute = fmt.Sprintf("%d'", *e.Data.Minute)
		}
		fmt.Fprintf(&b, "  %s %4s  %s\n", services.EventIcon(e.EventType), minute, services.EventDescription(e))
	}
	if len(snap.Events) == 0 {
		b.WriteString("  Esperando eventos...\n")
	}
	fmt.Print(b.String())
}

// serveMetrics exposes reg on addr/metrics until the returned func is
// called. It returns the bound address.
func serveMetrics(addr string, reg *prometheus.Registry) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Metrics listener error: %v", err)
		}
	}()

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}

func stdinConfirm(prompt string) bool {
	fmt.Printf("%s [s/N] ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "s", "si", "sí", "y", "yes":
		return true
	}
	return false
}

// replayFile publishes every JSON line of path as a match event.
func replayFile(path string, lb *realtime.Loopback) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	n, lineNo := 0, 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event models.MatchEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			logger.Errorf("Skipping malformed replay line %d: %v", lineNo, err)
			continue
		}
		if err := lb.PublishMatchEvent(event); err != nil {
			return n, err
		}
		n++
	}
	return n, scanner.Err()
}
