package domain

import "fmt"

// Kind identifies a delivery channel. The set is closed.
type Kind string

const (
	// KindTmux injects comments into a terminal pane of a tmux server.
	KindTmux Kind = "tmux"
	// KindMCP hands comments to an agent connected over the Model Context Protocol.
	KindMCP Kind = "mcp"
	// KindClipboard is the manual-copy fallback: the reviewer pastes the text.
	KindClipboard Kind = "clipboard"
)

// DefaultKind is active until a configuration says otherwise.
// It is always available so delivery is always attemptable.
const DefaultKind = KindClipboard

var kinds = []Kind{KindTmux, KindMCP, KindClipboard}

// Kinds returns every known channel kind in a fixed order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string { return string(k) }

// ParseKind validates a raw kind string.
func ParseKind(raw string) (Kind, error) {
	k := Kind(raw)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown transport %q", ErrValidation, raw)
	}
	return k, nil
}

// Target is a delivery destination discovered by a channel.
// ID is only meaningful together with Transport.
type Target struct {
	ID        string            `json:"id"`
	Label     string            `json:"label"`
	Transport Kind              `json:"transport"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SendResult is the outcome of one delivery attempt for a whole batch.
type SendResult struct {
	Success       bool   `json:"success"`
	FormattedText string `json:"formatted_text,omitempty"`
}

// TransportStatus is computed on demand from the channel's underlying resource.
type TransportStatus struct {
	Transport Kind   `json:"transport"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// ActiveConfig is the persisted choice of channel and last used target.
type ActiveConfig struct {
	ActiveTransport Kind    `json:"active_transport" yaml:"active_transport"`
	LastTargetID    *string `json:"last_target_id" yaml:"last_target_id"`
}

// DefaultConfig is used when nothing was ever persisted.
func DefaultConfig() ActiveConfig {
	return ActiveConfig{ActiveTransport: DefaultKind}
}

// TargetID returns the saved target id, or "" when none is configured.
func (c ActiveConfig) TargetID() string {
	if c.LastTargetID == nil {
		return ""
	}
	return *c.LastTargetID
}

// Validate checks the config before it is persisted.
func (c ActiveConfig) Validate() error {
	if !c.ActiveTransport.Valid() {
		return fmt.Errorf("%w: unknown transport %q", ErrValidation, c.ActiveTransport)
	}
	return nil
}
