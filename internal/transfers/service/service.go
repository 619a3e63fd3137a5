// Package service records inbound live-transfer requests. Providers
// retry webhook deliveries, so requests are deduplicated by a content
// hash before a document is written.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

// CreateRequest is one live-transfer notification.
type CreateRequest struct {
	From           string
	To             string
	TransferNumber string
	ReasonSay      string
	FromName       string
	OrganizationID string
}

// CreateResult reports the stored transfer. Duplicate is true when the
// request matched an existing document and nothing was written.
type CreateResult struct {
	TransferID string `json:"transfer_id"`
	Duplicate  bool   `json:"duplicate"`
}

// Store is the document access live transfers need.
type Store interface {
	FindLiveTransferByHash(ctx context.Context, hash string) (string, *store.LiveTransfer, error)
	PutLiveTransfer(ctx context.Context, id string, lt *store.LiveTransfer) error
}

// Service records live transfers.
type Service struct {
	store Store
	log   *logger.Logger
	now   func() time.Time
}

// New creates the transfers service.
func New(st Store, log *logger.Logger) *Service {
	return &Service{store: st, log: log, now: time.Now}
}

// Create stores the transfer unless an identical request was already
// recorded.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	hash := RequestHash(req.From, req.To, req.TransferNumber, req.ReasonSay)

	existingID, _, err := s.store.FindLiveTransferByHash(ctx, hash)
	switch {
	case err == nil:
		s.log.Info("duplicate live transfer ignored", "request_hash", hash)
		return &CreateResult{TransferID: existingID, Duplicate: true}, nil
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, err
	}

	id := uuid.New().String()
	err = s.store.PutLiveTransfer(ctx, id, &store.LiveTransfer{
		From:           req.From,
		To:             req.To,
		TransferNumber: req.TransferNumber,
		ReasonSay:      req.ReasonSay,
		FromName:       req.FromName,
		OrganizationID: req.OrganizationID,
		RequestHash:    hash,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("live transfer recorded", "transfer_id", id)
	return &CreateResult{TransferID: id}, nil
}

// RequestHash fingerprints a transfer request by the fields that identify
// a retry of the same call.
func RequestHash(from, to, transferNumber, reasonSay string) string {
	sum := sha256.Sum256([]byte(from + "_" + to + "_" + transferNumber + "_" + reasonSay))
	return hex.EncodeToString(sum[:])
}
