package service

import (
	"context"
	"testing"

	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

type fakeStore struct {
	byHash map[string]string
	docs   map[string]*store.LiveTransfer
}

func newFakeStore() *fakeStore {
	return &fakeStore{byHash: map[string]string{}, docs: map[string]*store.LiveTransfer{}}
}

func (f *fakeStore) FindLiveTransferByHash(_ context.Context, hash string) (string, *store.LiveTransfer, error) {
	id, ok := f.byHash[hash]
	if !ok {
		return "", nil, apperr.NotFound("live transfer not found")
	}
	return id, f.docs[id], nil
}

func (f *fakeStore) PutLiveTransfer(_ context.Context, id string, lt *store.LiveTransfer) error {
	f.byHash[lt.RequestHash] = id
	f.docs[id] = lt
	return nil
}

func request() CreateRequest {
	return CreateRequest{
		From:           "15125559999",
		To:             "15125550000",
		TransferNumber: "15125550199",
		ReasonSay:      "caller wants to speak to an agent",
		FromName:       "Alex",
		OrganizationID: "org-1",
	}
}

func TestCreateStoresTransfer(t *testing.T) {
	st := newFakeStore()
	svc := New(st, logger.New("test"))

	result, err := svc.Create(context.Background(), request())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if result.Duplicate {
		t.Fatal("expected a fresh transfer")
	}
	if result.TransferID == "" {
		t.Fatal("expected a transfer id")
	}

	doc := st.docs[result.TransferID]
	if doc == nil {
		t.Fatal("expected the transfer stored")
	}
	if doc.RequestHash == "" {
		t.Fatal("expected the request hash stored")
	}
	if doc.FromName != "Alex" || doc.OrganizationID != "org-1" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestCreateDeduplicatesRetries(t *testing.T) {
	st := newFakeStore()
	svc := New(st, logger.New("test"))

	first, err := svc.Create(context.Background(), request())
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	second, err := svc.Create(context.Background(), request())
	if err != nil {
		t.Fatalf("retried create failed: %v", err)
	}

	if !second.Duplicate {
		t.Fatal("expected the retry flagged as duplicate")
	}
	if second.TransferID != first.TransferID {
		t.Fatalf("expected the original id back, got %q", second.TransferID)
	}
	if len(st.docs) != 1 {
		t.Fatalf("expected 1 stored document, got %d", len(st.docs))
	}
}

func TestCreateDifferentReasonIsNotDuplicate(t *testing.T) {
	st := newFakeStore()
	svc := New(st, logger.New("test"))

	if _, err := svc.Create(context.Background(), request()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	req := request()
	req.ReasonSay = "billing question"
	result, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if result.Duplicate {
		t.Fatal("expected a different reason to create a new transfer")
	}
	if len(st.docs) != 2 {
		t.Fatalf("expected 2 stored documents, got %d", len(st.docs))
	}
}

func TestRequestHashStable(t *testing.T) {
	a := RequestHash("from", "to", "transfer", "reason")
	b := RequestHash("from", "to", "transfer", "reason")
	if a != b {
		t.Fatal("expected a stable hash")
	}
	if len(a) != 64 {
		t.Fatalf("expected a hex sha256, got %d chars", len(a))
	}
	if RequestHash("from", "to", "transfer", "other") == a {
		t.Fatal("expected different input to change the hash")
	}
}
