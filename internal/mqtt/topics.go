package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "espdmx"

func normalisePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return DefaultTopicPrefix
	}
	return prefix
}

// StateTopic is where the bridge publishes "online" and its will publishes
// "offline".
//
// Example: espdmx/bridge/state
func StateTopic(prefix string) string {
	return normalisePrefix(prefix) + "/bridge/state"
}

// NodeTopic is the retained state topic for the node at addr.
//
// Example: espdmx/nodes/10.110.115.10
func NodeTopic(prefix, addr string) string {
	return normalisePrefix(prefix) + "/nodes/" + addr
}
