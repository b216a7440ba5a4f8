// Package topics derives every MQTT topic the bridge uses. All functions
// are pure string concatenations of their inputs.
package topics

import (
	"strings"

	"github.com/fisaks/computer-assistant/internal/entity"
)

const (
	sep         = "/"
	entitiesSeg = "entities"
	cmdSeg      = "cmd"
	statSeg     = "stat"
	configSeg   = "config"
)

func join(parts ...string) string { return strings.Join(parts, sep) }

// CommandRoot is the prefix of every command topic: {base}/entities/cmd.
func CommandRoot(base string) string {
	return join(base, entitiesSeg, cmdSeg)
}

// CommandFilter is the wildcard subscription covering all command topics.
func CommandFilter(base string) string {
	return join(CommandRoot(base), "#")
}

func Command(base string, kind entity.Kind, id string) string {
	return join(CommandRoot(base), kind.String(), id)
}

func State(base string, kind entity.Kind, id string) string {
	return join(base, entitiesSeg, statSeg, kind.String(), id)
}

// Discovery is where Home Assistant expects the retained config payload.
func Discovery(root string, kind entity.Kind, base, id string) string {
	return join(root, kind.String(), base, id, configSeg)
}

func Availability(base, suffix string) string {
	return join(base, suffix)
}

// SplitCommand strips prefix from topic and returns the remaining path
// segments. ok is false when topic is not under prefix.
func SplitCommand(topic, prefix string) (segments []string, ok bool) {
	if topic != prefix && !strings.HasPrefix(topic, prefix+sep) {
		return nil, false
	}
	rest := strings.Trim(strings.TrimPrefix(topic, prefix), sep)
	return strings.Split(rest, sep), true
}
