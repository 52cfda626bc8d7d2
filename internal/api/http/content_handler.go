package http

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"rentchain-backend/internal/domain"
	"rentchain-backend/internal/storage"

	"github.com/gorilla/mux"
)

// ContentHandler uploads blobs to the content store and serves pinned content
// back by CID.
type ContentHandler struct {
	store          storage.ContentStore
	gatewayURL     string
	maxUploadBytes int64
}

func NewContentHandler(store storage.ContentStore, gatewayURL string, maxUploadBytes int64) *ContentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &ContentHandler{
		store:          store,
		gatewayURL:     strings.TrimRight(gatewayURL, "/"),
		maxUploadBytes: maxUploadBytes,
	}
}

type uploadResponse struct {
	CID string `json:"cid"`
	URL string `json:"url"`
}

// HandleUpload pins the multipart field "file".
func (h *ContentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, domain.WrapError(domain.KindValidation, err, "missing or oversized file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, domain.WrapError(domain.KindValidation, err, "failed to read upload"))
		return
	}
	if len(data) == 0 {
		writeError(w, r, domain.NewError(domain.KindValidation, "file is empty"))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	cid, err := h.store.PinBlob(r.Context(), data, filepath.Base(header.Filename), mimeType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{CID: cid, URL: h.gatewayURL + "/" + cid})
}

// HandleFetch serves pinned content. Content is addressed by hash, so it never changes.
func (h *ContentHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Fetch(r.Context(), mux.Vars(r)["cid"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	contentType := http.DetectContentType(data)
	if strings.HasPrefix(contentType, "text/plain") && len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
