package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/logger"
)

// PinataOptions configures PinataStore. JWT takes precedence over the key pair.
type PinataOptions struct {
	BaseURL    string
	GatewayURL string
	APIKey     string
	SecretKey  string
	JWT        string
	Timeout    time.Duration
}

// PinataStore pins content through the Pinata pinning API and fetches it
// back through an IPFS gateway.
type PinataStore struct {
	opts PinataOptions
	HTTP *http.Client
}

func NewPinataStore(opts PinataOptions) *PinataStore {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.pinata.cloud"
	}
	if opts.GatewayURL == "" {
		opts.GatewayURL = "https://gateway.pinata.cloud/ipfs"
	}
	return &PinataStore{
		opts: opts,
		HTTP: &http.Client{Timeout: opts.Timeout},
	}
}

type pinataMetadata struct {
	Name string `json:"name"`
}

type pinJSONRequest struct {
	Metadata pinataMetadata  `json:"pinataMetadata"`
	Content  json.RawMessage `json:"pinataContent"`
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

func (s *PinataStore) PinDocument(ctx context.Context, name string, doc json.RawMessage) (string, error) {
	if !json.Valid(doc) {
		return "", domain.NewError(domain.KindValidation, "document %q is not valid JSON", name)
	}
	body, err := json.Marshal(pinJSONRequest{Metadata: pinataMetadata{Name: name}, Content: doc})
	if err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "encode pin request")
	}
	return s.pin(ctx, "pin_document", "/pinning/pinJSONToIPFS", "application/json", body)
}

func (s *PinataStore) PinBlob(ctx context.Context, data []byte, name, mimeType string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "encode pin request")
	}
	if _, err := part.Write(data); err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "encode pin request")
	}
	meta, _ := json.Marshal(pinataMetadata{Name: name})
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "encode pin request")
	}
	if err := mw.Close(); err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "encode pin request")
	}

	return s.pin(ctx, "pin_blob", "/pinning/pinFileToIPFS", mw.FormDataContentType(), buf.Bytes())
}

func (s *PinataStore) pin(ctx context.Context, op, path, contentType string, body []byte) (string, error) {
	logger.ExternalServiceCall("pinata", op, "bytes", len(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.opts.BaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return "", domain.WrapError(domain.KindInternal, err, "build pin request")
	}
	req.Header.Set("Content-Type", contentType)
	s.authorize(req)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		logger.ExternalServiceResult("pinata", op, err)
		return "", domain.WrapError(domain.KindStoreUnavailable, err, "pinata %s", op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("pinata returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		logger.ExternalServiceResult("pinata", op, err)
		return "", domain.WrapError(domain.KindStoreUnavailable, err, "pinata %s", op)
	}

	var out pinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logger.ExternalServiceResult("pinata", op, err)
		return "", domain.WrapError(domain.KindStoreUnavailable, err, "decode pinata response")
	}
	if out.IpfsHash == "" {
		err := fmt.Errorf("pinata response has no IpfsHash")
		logger.ExternalServiceResult("pinata", op, err)
		return "", domain.WrapError(domain.KindStoreUnavailable, err, "pinata %s", op)
	}

	logger.ExternalServiceResult("pinata", op, nil, "cid", out.IpfsHash)
	return out.IpfsHash, nil
}

func (s *PinataStore) Fetch(ctx context.Context, cid string) ([]byte, error) {
	logger.ExternalServiceCall("ipfs-gateway", "fetch", "cid", cid)

	url := strings.TrimRight(s.opts.GatewayURL, "/") + "/" + cid
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "build fetch request")
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		logger.ExternalServiceResult("ipfs-gateway", "fetch", err)
		return nil, domain.WrapError(domain.KindStoreUnavailable, err, "fetch %s", cid)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewError(domain.KindNotFound, "content %s not found", cid)
	}
	if resp.StatusCode >= 300 {
		err := fmt.Errorf("gateway returned %d", resp.StatusCode)
		logger.ExternalServiceResult("ipfs-gateway", "fetch", err)
		return nil, domain.WrapError(domain.KindStoreUnavailable, err, "fetch %s", cid)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapError(domain.KindStoreUnavailable, err, "fetch %s", cid)
	}
	logger.ExternalServiceResult("ipfs-gateway", "fetch", nil, "bytes", len(data))
	return data, nil
}

func (s *PinataStore) authorize(req *http.Request) {
	if s.opts.JWT != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.JWT)
		return
	}
	req.Header.Set("pinata_api_key", s.opts.APIKey)
	req.Header.Set("pinata_secret_api_key", s.opts.SecretKey)
}
