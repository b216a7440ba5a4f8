package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fisaks/computer-assistant/internal/entity"
	"github.com/fisaks/computer-assistant/internal/messaging"
	"github.com/fisaks/computer-assistant/internal/topics"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  cactl send --base BASE --kind KIND --entity NAME --payload PAYLOAD

Required flags for 'send':
  --base     (string)   Base topic of the computer-assistant instance
  --kind     (string)   Entity kind: switch, button or number
  --entity   (string)   Entity name or id (e.g. "Kitchen Light" or kitchen_light)
  --payload  (string)   Command payload (ON/OFF, PRESS or a number)

  Optional flags:
  --broker   (string)   MQTT broker address (default: tcp://localhost:1883)
  --username (string)   MQTT username
  --password (string)   MQTT password

`)
}

func commandTopic(base, kind, name string) (string, error) {
	k := entity.Kind(kind)
	if !k.Valid() {
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	if k != entity.KindSwitch && k != entity.KindButton && k != entity.KindNumber {
		return "", fmt.Errorf("kind %s does not accept commands", k)
	}
	return topics.Command(strings.Trim(base, "/"), k, entity.ToID(name)), nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Missing command (e.g. send)\n")
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	if cmd != "send" {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(2)
	}

	sendFlags := flag.NewFlagSet("send", flag.ExitOnError)
	base := sendFlags.String("base", "", "Base topic (required)")
	kind := sendFlags.String("kind", "", "Entity kind (required)")
	name := sendFlags.String("entity", "", "Entity name or id (required)")
	payload := sendFlags.String("payload", "", "Command payload (required)")
	broker := sendFlags.String("broker", "tcp://localhost:1883", "MQTT broker address")
	username := sendFlags.String("username", os.Getenv("MQTT_USERNAME"), "MQTT username")
	password := sendFlags.String("password", os.Getenv("MQTT_PASSWORD"), "MQTT password")
	sendFlags.Usage = usage

	if err := sendFlags.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	missing := false
	for flagName, v := range map[string]string{"base": *base, "kind": *kind, "entity": *name, "payload": *payload} {
		if v == "" {
			fmt.Fprintf(os.Stderr, "--%s is required\n", flagName)
			missing = true
		}
	}
	if missing {
		usage()
		os.Exit(2)
	}

	topic, err := commandTopic(*base, *kind, *name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var client messaging.Broker = messaging.NewMsgBroker(messaging.BrokerConfig{
		BrokerURL:    *broker,
		ClientID:     "cactl-" + uuid.NewString(),
		Username:     *username,
		Password:     *password,
		CleanSession: true,
	})
	if err := client.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "MQTT connect error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close(ctx)

	if err := client.Publish(ctx, topic, messaging.AtLeastOnce, false, []byte(*payload)); err != nil {
		fmt.Fprintf(os.Stderr, "MQTT publish error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sent %q to %s\n", *payload, topic)
}
