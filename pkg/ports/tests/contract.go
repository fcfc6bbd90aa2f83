package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/ports"
)

// TransportContractTest is a reusable test suite that verifies if a channel complies with ports.Transport.
// unknownTarget must be an id the channel cannot deliver to.
func TransportContractTest(t *testing.T, tr ports.Transport, unknownTarget string) {
	t.Helper()
	ctx := context.Background()

	// 1. Status is well formed and never fails
	t.Run("Status_WellFormed", func(t *testing.T) {
		st := tr.Status(ctx)
		if st.Transport != tr.Kind() {
			t.Errorf("status kind mismatch: got %q, want %q", st.Transport, tr.Kind())
		}
		if st.Available && st.Error != "" {
			t.Errorf("available status must not carry an error, got %q", st.Error)
		}
		if !st.Available && st.Error == "" {
			t.Error("unavailable status must carry a reason")
		}
	})

	// 2. Status agrees with IsAvailable
	t.Run("Status_MatchesProbe", func(t *testing.T) {
		if got, want := tr.Status(ctx).Available, tr.IsAvailable(ctx); got != want {
			t.Errorf("Status().Available = %v, IsAvailable() = %v", got, want)
		}
	})

	// 3. Discovery tags every target with the channel kind
	t.Run("ListTargets_Tagged", func(t *testing.T) {
		targets, err := tr.ListTargets(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrChannel) {
				t.Fatalf("discovery failure must match ErrChannel, got %v", err)
			}
			return
		}
		if targets == nil {
			t.Error("no targets must be an empty slice, not nil")
		}
		for _, target := range targets {
			if target.Transport != tr.Kind() {
				t.Errorf("target %s tagged %q, want %q", target.ID, target.Transport, tr.Kind())
			}
			if target.ID == "" {
				t.Error("target without id")
			}
		}
	})

	// 4. Delivery failures are translated
	t.Run("SendComments_UnknownTarget", func(t *testing.T) {
		payloads := []domain.CommentPayload{{ID: "c1", FilePath: "main.go", Content: "nit", Status: domain.StatusDraft, Author: domain.AuthorHuman}}
		_, err := tr.SendComments(ctx, unknownTarget, payloads)
		if err == nil {
			t.Fatal("expected error for unknown target, got nil")
		}
		var te *domain.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("expected *domain.TransportError, got %T: %v", err, err)
		}
		if te.Transport != tr.Kind() {
			t.Errorf("error tagged %q, want %q", te.Transport, tr.Kind())
		}
	})
}
