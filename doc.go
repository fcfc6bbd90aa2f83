/*
Package reviewlink carries a reviewer's comments on a live coding session to the AI agent doing the work, and keeps every open review UI up to date while it happens.

# Concept

A review session has two directions of traffic. Comments flow from the reviewer to the agent through one of three delivery channels, and session events (new diff snapshots, comment state changes, watcher status) flow to every browser tab watching the session.

The delivery channels share one contract (ports.Transport):

  - Terminal injection: the batch is pasted into the tmux pane where the agent runs.
  - Agent protocol: the batch is queued for a connected MCP client, which is notified and drains it with a tool call.
  - Manual copy: the batch lands in a copy buffer, the system clipboard or the terminal clipboard. This channel is always available and is the fallback.

Exactly one channel is active at a time. The choice and the last target are persisted through a ports.ConfigStore (memory, JSON file, Redis or SQLite).

Live updates are Server-Sent Events. Each session has its own set of connections and its own lock, so sessions never contend, and a subscriber whose connection fails is dropped without affecting the others.

# Usage

	cfg, err := config.Load("reviewlink.yaml")
	if err != nil {
		log.Fatal(err)
	}

	app, err := reviewlink.New(cfg, reviewlink.WithComments(myRepository))
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	// Serves the REST API, the event streams, /metrics and the MCP endpoint.
	if err := app.Run(ctx); err != nil {
		log.Fatal(err)
	}

Comment storage, diff capture and file watching live outside this module. They reach it through ports.CommentRepository and through the live.Broadcaster helpers (SnapshotCaptured, WatcherChanged, CommentUpdated).
*/
package reviewlink
