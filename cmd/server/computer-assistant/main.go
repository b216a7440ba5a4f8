package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fisaks/computer-assistant/internal/action"
	"github.com/fisaks/computer-assistant/internal/bridge"
	"github.com/fisaks/computer-assistant/internal/config"
	"github.com/fisaks/computer-assistant/internal/logging"
	"github.com/fisaks/computer-assistant/internal/messaging"
	"github.com/fisaks/computer-assistant/internal/metrics"
	"github.com/fisaks/computer-assistant/internal/registry"
)

const clientID = "computer-assistant"

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logging.Warn("ignoring non-numeric environment value", "key", key, "value", v)
	}
	return def
}

type options struct {
	hostname      string
	username      string
	password      string
	keepalive     int
	configPath    string
	logLevel      string
	logFormat     string
	metricsListen string
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.hostname, "hostname", getenv("MQTT_HOST", "mqtt://homeassistant.local:1883"), "MQTT broker URL")
	flag.StringVar(&o.username, "username", getenv("MQTT_USERNAME", ""), "MQTT username")
	flag.StringVar(&o.password, "password", getenv("MQTT_PASSWORD", ""), "MQTT password")
	flag.IntVar(&o.keepalive, "keepalive", getenvInt("MQTT_KEEPALIVE", 30), "MQTT keepalive in seconds")
	flag.StringVar(&o.configPath, "config", getenv("CONFIG_PATH", "config.yaml"), "path to the YAML config")
	flag.StringVar(&o.logLevel, "log-level", getenv("LOG_LEVEL", "info"), "debug, info, warn or error")
	flag.StringVar(&o.logFormat, "log-format", getenv("LOG_FORMAT", "json"), "json or text")
	flag.StringVar(&o.metricsListen, "metrics-listen", getenv("METRICS_LISTEN", ""), "address for /metrics, empty disables it")
	flag.Parse()
	return o
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("could not load .env", "error", err)
	}
	opts := parseFlags()
	logging.Init(opts.logLevel, opts.logFormat)

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		logging.Fatal("Config error", "path", opts.configPath, "error", err)
	}
	global := cfg.ComputerAssistant
	reg := registry.New(cfg.Entities())
	logging.Info("Loaded config",
		"baseTopic", global.BaseTopic,
		"entities", reg.Len(),
		"statusInterval", global.StatusInterval(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if opts.metricsListen != "" {
		go func() {
			if err := metrics.Serve(ctx, opts.metricsListen, m); err != nil {
				logging.Error("metrics server failed", "error", err)
			}
		}()
	}

	var broker messaging.Broker = messaging.NewMsgBroker(messaging.BrokerConfig{
		BrokerURL:        opts.hostname,
		ClientID:         clientID,
		Username:         opts.username,
		Password:         opts.password,
		KeepAlive:        time.Duration(opts.keepalive) * time.Second,
		Will:             bridge.WillMessage(global),
		ConnectTimeout:   10 * time.Second,
		PublishTimeout:   5 * time.Second,
		SubscribeTimeout: 5 * time.Second,
	})
	if err := broker.Connect(ctx); err != nil {
		logging.Fatal("MQTT connect failed", "broker", opts.hostname, "error", err)
	}

	b := bridge.New(global, reg, broker, action.NewInvoker(m), m)
	runErr := b.Start(ctx)
	if runErr == nil {
		runErr = b.Run(ctx)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := broker.Close(closeCtx); err != nil {
		logging.Warn("MQTT close", "error", err)
	}
	logging.Info("Disconnected")

	if runErr != nil {
		logging.Fatal("Bridge stopped", "error", runErr)
	}
}
