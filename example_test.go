package reviewlink_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/reviewlink"
	"github.com/aretw0/reviewlink/internal/config"
	"github.com/aretw0/reviewlink/pkg/adapters/memory"
	"github.com/aretw0/reviewlink/pkg/domain"
)

// ExampleNew_clipboard sends a draft comment to the in-process copy buffer,
// the only channel that needs no external program.
func ExampleNew_clipboard() {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	cfg.Tmux.Enabled = false
	cfg.MCP.Enabled = false
	cfg.Clipboard.System = false
	cfg.Clipboard.Terminal = false

	comments := memory.NewComments()
	line := 12
	comments.Put("S1", domain.CommentPayload{
		ID:        "c1",
		FilePath:  "server.go",
		LineStart: &line,
		Content:   "Handle the closed connection here.",
		Status:    domain.StatusDraft,
		Author:    domain.AuthorHuman,
	})

	app, err := reviewlink.New(cfg, reviewlink.WithComments(comments))
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	ctx := context.Background()
	target := "buffer"
	if _, err := app.Service.SaveActiveConfig(ctx, domain.KindClipboard, &target); err != nil {
		log.Fatal(err)
	}

	res, err := app.Dispatcher.Send(ctx, "S1", nil)
	if err != nil {
		log.Fatal(err)
	}
	text, _, _ := app.CopyBuffer.Latest()

	fmt.Println("success:", res.Success)
	fmt.Println(strings.SplitN(text, "\n", 2)[0])
	// Output:
	// success: true
	// # Review feedback (1 comment)
}
