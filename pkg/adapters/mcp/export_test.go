package mcp

// SetNotifier replaces how notifications reach a session.
func (h *Hub) SetNotifier(notify func(sessionID, method string, params map[string]any) error) {
	h.notify = notify
}
