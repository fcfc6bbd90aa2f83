/*
Package ports defines the driven ports (interfaces) of reviewlink.

These interfaces decouple the transport and live-update core from the external
collaborators it talks to: persisted configuration, the comment repository,
and the media each delivery channel drives.

# Key Interfaces

  - Transport: The uniform contract every delivery channel implements.
  - ConfigStore: Persists the ActiveConfig (load on start, save on change).
  - CommentRepository: Supplies comment payloads and records sent transitions.
  - Multiplexer / AgentEndpoint / ClipboardSink: Probes for each channel's medium.
  - EventPublisher: Publishes live updates for a session.
*/
package ports
