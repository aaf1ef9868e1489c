// Package identity canonicalizes the volatile strings the OS reports for
// hosts and hardware (machine names, drive letters, volume labels, disk
// models, serial numbers) into stable topic-namespace tokens.
//
// One sanitization rule covers every namespace component, which is what
// keeps cross-entity topic names composable: a host token and a component
// ID never collide because both are drawn from the same `[a-z0-9_]+`
// alphabet but built from disjoint source material (machine name vs.
// model+serial).
//
// Component IDs are the load-bearing identity here. A physical disk keeps
// the same `<model>_<serial>` ID no matter which host it is plugged into,
// so the hub's entity history survives drive moves. Nothing is persisted
// locally; the broker's retained messages are the only storage.
package identity

import "strings"

// Unknown is the placeholder token used when a hardware field is absent,
// empty, or unusable. Sanitize never returns an empty string.
const Unknown = "unknown"

// Sanitize canonicalizes text into a topic-safe token: lowercase, every
// character outside [a-z0-9] replaced with underscore, runs of
// underscores collapsed, leading/trailing underscores trimmed. Inputs
// that are empty or look like a serialized boolean (WMI reports missing
// serials as literal True/False on some controllers) yield [Unknown].
//
// Sanitize is total: any input produces a non-empty token matching
// ^[a-z0-9_]+$.
func Sanitize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	switch s {
	case "", "true", "false":
		return Unknown
	}

	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return Unknown
	}
	return out
}

// HostToken derives the topic-namespace token for a machine name.
func HostToken(hostName string) string {
	return Sanitize(hostName)
}

// ComponentID builds the host-independent identifier for a portable
// hardware unit from its model and serial number. Model and serial are
// sanitized independently, so the ID is stable across runs and across
// host moves as long as the OS reports the same model+serial pair.
func ComponentID(model, serial string) string {
	if strings.TrimSpace(serial) == "" {
		serial = Unknown
	}
	return Sanitize(model) + "_" + Sanitize(serial)
}
