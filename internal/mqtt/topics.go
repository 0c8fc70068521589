package mqtt

import "strings"

// Topics builds the bridge's topic names under a prefix.
//
//	<prefix>/<id>/state         retained JSON state
//	<prefix>/<id>/availability  retained "online" / "offline"
//	<prefix>/<id>/set           commands
//	<prefix>/bridge/status      retained bridge liveness (LWT)
type Topics struct {
	Prefix string
}

// State returns the state topic of a fan.
func (t Topics) State(id string) string {
	return t.Prefix + "/" + id + "/state"
}

// Availability returns the availability topic of a fan.
func (t Topics) Availability(id string) string {
	return t.Prefix + "/" + id + "/availability"
}

// Set returns the command topic of a fan.
func (t Topics) Set(id string) string {
	return t.Prefix + "/" + id + "/set"
}

// SetAll matches the command topic of every fan.
func (t Topics) SetAll() string {
	return t.Prefix + "/+/set"
}

// BridgeStatus is the retained liveness topic of the bridge itself.
func (t Topics) BridgeStatus() string {
	return t.Prefix + "/bridge/status"
}

// EntityFromSet extracts the fan id from a command topic.
func (t Topics) EntityFromSet(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/set")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
