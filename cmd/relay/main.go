package main

import (
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/itbasis/go-clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"livescore-client/config"
	"livescore-client/logger"
	"livescore-client/realtime"
	"livescore-client/web"
)

func main() {
	logger.Println("Starting live match relay...")

	// 加载配置
	cfg := config.Load()

	var fanout string
	flags := pflag.NewFlagSet("relay", pflag.ExitOnError)
	flags.StringVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP listen port")
	flags.StringVar(&fanout, "publish", "", "extra publishers, comma separated: mqtt, amqp")
	flags.Parse(os.Args[1:])

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := web.NewMetrics(reg)

	// 创建WebSocket Hub
	wsHub := web.NewHub(metrics)
	go wsHub.Run()

	server := web.NewServer(cfg, wsHub, clock.New(), metrics, reg)

	var closers []func() error
	for _, name := range strings.Split(fanout, ",") {
		switch strings.TrimSpace(name) {
		case "":
		case realtime.TransportMQTT:
			c := realtime.NewMQTTClient(cfg.MQTTBroker, cfg.MQTTUser, cfg.MQTTPass)
			if err := c.Connect(); err != nil {
				logger.Fatalf("MQTT publisher error: %v", err)
			}
			server.AddPublisher(realtime.TransportMQTT, c)
			closers = append(closers, c.Disconnect)
		case realtime.TransportAMQP:
			c := realtime.NewAMQPClient(cfg.AMQPURL, realtime.DefaultExchange)
			if err := c.Connect(); err != nil {
				logger.Fatalf("AMQP publisher error: %v", err)
			}
			server.AddPublisher(realtime.TransportAMQP, c)
			closers = append(closers, c.Close)
		default:
			logger.Fatalf("Unknown publisher %q", name)
		}
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	logger.Println("Relay is running. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down relay...")

	// 清理资源
	server.Stop()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Errorf("Publisher close error: %v", err)
		}
	}

	logger.Println("Relay stopped")
}
