package storage

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
)

// cidV1Raw is the CIDv1 prefix for raw bytes hashed with sha2-256:
// version 1, codec raw (0x55), multihash sha2-256 (0x12) of 32 bytes.
var cidV1Raw = []byte{0x01, 0x55, 0x12, 0x20}

var cidEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ComputeCID returns the CIDv1 (base32, raw codec) of data.
func ComputeCID(data []byte) string {
	sum := sha256.Sum256(data)
	buf := append(append([]byte{}, cidV1Raw...), sum[:]...)
	return "b" + strings.ToLower(cidEncoding.EncodeToString(buf))
}

// LocalStore is a content store on the local filesystem for development and
// tests. Content ids are real CIDv1 values so they look like IPFS ids.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the directory when needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("local store directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) PinDocument(ctx context.Context, name string, doc json.RawMessage) (string, error) {
	if !json.Valid(doc) {
		return "", domain.NewError(domain.KindValidation, "document %q is not valid JSON", name)
	}
	return s.pin(ctx, "pin_document", doc, name)
}

func (s *LocalStore) PinBlob(ctx context.Context, data []byte, name, mimeType string) (string, error) {
	return s.pin(ctx, "pin_blob", data, name)
}

func (s *LocalStore) pin(ctx context.Context, op string, data []byte, name string) (string, error) {
	logger.ExternalServiceCall("local-store", op, "name", name, "size", len(data))
	if err := ctx.Err(); err != nil {
		return "", domain.WrapError(domain.KindStoreUnavailable, err, "pin %s", name)
	}

	cid := ComputeCID(data)
	path := s.path(cid)
	// Same content, same id: an existing file already holds these bytes.
	if _, err := os.Stat(path); err == nil {
		logger.ExternalServiceResult("local-store", op, nil, "cid", cid, "existing", true)
		return cid, nil
	}

	tmp, err := os.CreateTemp(s.dir, ".pin-*")
	if err != nil {
		logger.ExternalServiceResult("local-store", op, err)
		return "", domain.WrapError(domain.KindStoreUnavailable, err, "pin %s", name)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		logger.ExternalServiceResult("local-store", op, err)
		return "", domain.WrapError(domain.KindStoreUnavailable, err, "pin %s", name)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		logger.ExternalServiceResult("local-store", op, err)
		return "", domain.WrapError(domain.KindStoreUnavailable, err, "pin %s", name)
	}

	logger.ExternalServiceResult("local-store", op, nil, "cid", cid)
	return cid, nil
}

func (s *LocalStore) Fetch(ctx context.Context, cid string) ([]byte, error) {
	if !validCID(cid) {
		return nil, domain.NewError(domain.KindValidation, "malformed content id %q", cid)
	}
	data, err := os.ReadFile(s.path(cid))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.NewError(domain.KindNotFound, "content %s not found", cid)
	}
	if err != nil {
		return nil, domain.WrapError(domain.KindStoreUnavailable, err, "fetch %s", cid)
	}
	return data, nil
}

func (s *LocalStore) path(cid string) string {
	return filepath.Join(s.dir, cid)
}

// validCID keeps gateway input from escaping the store directory.
func validCID(cid string) bool {
	if len(cid) < 2 || cid[0] != 'b' {
		return false
	}
	for _, r := range cid[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '2' && r <= '7') {
			return false
		}
	}
	return true
}
