/*
Package domain contains the shared vocabulary of reviewlink.

It defines the values exchanged between the transport channels, the
orchestration service and the live update broadcaster. This package is kept
pure and free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - Kind: The closed set of delivery channels (tmux, mcp, clipboard).
  - Target: A destination discovered by a channel (a terminal pane, an agent session).
  - CommentPayload: The read-only snapshot of a review comment handed to a channel.
  - SendResult / TransportStatus: Outcomes reported by a channel.
  - ActiveConfig: The persisted choice of active channel and last used target.
  - Event: The discriminated live update pushed to subscribers of a session.
*/
package domain
