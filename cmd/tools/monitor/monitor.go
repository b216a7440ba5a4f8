package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/fisaks/computer-assistant/internal/config"
	"github.com/fisaks/computer-assistant/internal/discovery"
	"github.com/fisaks/computer-assistant/internal/messaging"
)

// describe renders one message as a single line. Discovery payloads are
// tagged with the entity kind they describe.
func describe(topic string, payload []byte, discoveryRoot string) string {
	if strings.HasPrefix(topic, discoveryRoot+"/") && strings.HasSuffix(topic, "/config") {
		if len(payload) == 0 {
			return fmt.Sprintf("%s (discovery removed)", topic)
		}
		kind, err := discovery.KindOf(payload)
		if err != nil {
			return fmt.Sprintf("%s %s (error: %v)", topic, string(payload), err)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, payload); err != nil {
			return fmt.Sprintf("%s [%s] %s", topic, kind, string(payload))
		}
		return fmt.Sprintf("%s [%s] %s", topic, kind, compact.String())
	}
	return fmt.Sprintf("%s %s", topic, string(payload))
}

func main() {
	var broker, base, root, username, password string
	flag.StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	flag.StringVar(&base, "base", "", "base topic to watch, empty watches every instance")
	flag.StringVar(&root, "discovery", config.DefaultHomeAssistantTopic, "Home Assistant discovery root")
	flag.StringVar(&username, "username", os.Getenv("MQTT_USERNAME"), "MQTT username")
	flag.StringVar(&password, "password", os.Getenv("MQTT_PASSWORD"), "MQTT password")
	flag.Parse()

	filters := []string{root + "/#"}
	if base != "" {
		filters = append(filters, base+"/#")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var client messaging.Broker = messaging.NewMsgBroker(messaging.BrokerConfig{
		BrokerURL:    broker,
		ClientID:     "ca-monitor-" + uuid.NewString(),
		Username:     username,
		Password:     password,
		CleanSession: true,
	})
	if err := client.Connect(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Connected to MQTT broker %s, subscribing to %v...\n", broker, filters)

	printMsg := func(_ context.Context, topic string, payload []byte) {
		fmt.Println(describe(topic, payload, root))
	}
	for _, filter := range filters {
		if _, err := client.Subscribe(ctx, filter, messaging.AtMostOnce, printMsg); err != nil {
			log.Fatal(err)
		}
	}

	<-ctx.Done()
	fmt.Println("\nShutting down...")
	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = client.Close(closeCtx)
}
