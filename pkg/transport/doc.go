/*
Package transport delivers review comments to an AI agent through one of a
closed set of channels.

The Registry holds exactly one channel per domain.Kind and a pointer to the
active one. The Service is the channel-agnostic entry point used by the API
layer: target discovery across every channel, status reporting, persisted
active configuration, and delivery through the active channel.

Channels live in sub-packages (terminal, agent, manual) and share Format to
render a batch of comments as Markdown.
*/
package transport
