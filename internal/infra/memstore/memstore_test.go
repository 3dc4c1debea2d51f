package memstore

import (
	"context"
	"errors"
	"testing"

	"filechain/internal/domain"
)

func TestChainSaveIsolatesCallerSlice(t *testing.T) {
	c := NewChain()
	ctx := context.Background()
	blocks := []domain.Block{{Index: 0, OwnerID: "system", Hash: "h0"}}
	if err := c.Save(ctx, blocks); err != nil {
		t.Fatalf("save: %v", err)
	}
	blocks[0].OwnerID = "mallory"

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got[0].OwnerID != "system" {
		t.Fatal("store shares memory with caller")
	}
	got[0].OwnerID = "eve"
	again, _ := c.Load(ctx)
	if again[0].OwnerID != "system" {
		t.Fatal("load result shares memory with store")
	}
}

func TestChainLoadEmpty(t *testing.T) {
	blocks, err := NewChain().Load(context.Background())
	if err != nil || len(blocks) != 0 {
		t.Fatalf("expected empty chain, got %v %v", blocks, err)
	}
}

func TestAttestationsKeepOrder(t *testing.T) {
	a := NewAttestations()
	ctx := context.Background()
	for _, id := range []string{"one", "two", "three"} {
		if err := a.Append(ctx, domain.Attestation{ID: id}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, err := a.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].ID != "one" || got[2].ID != "three" {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewChain().Save(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := NewAttestations().List(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
