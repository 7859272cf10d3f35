package webui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"nftgen/ipfs"

	"go.uber.org/zap"
)

// IPFSResponse is the body of a successful /api/ipfs upload.
type IPFSResponse struct {
	Success    bool   `json:"success"`
	IPFSHash   string `json:"ipfsHash"`
	IPFSURL    string `json:"ipfsUrl"`
	GatewayURL string `json:"gatewayUrl"`
}

type ipfsMetadataRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	GenerationID string `json:"generationId"`
}

func newIPFSResponse(up ipfs.Upload) IPFSResponse {
	return IPFSResponse{
		Success:    true,
		IPFSHash:   up.CID,
		IPFSURL:    up.IPFSURL(),
		GatewayURL: up.GatewayURL(),
	}
}

func (s *Server) handleIPFSMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ipfsMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Description == "" || req.Image == "" {
		writeError(w, http.StatusBadRequest, "name, description, and image are required")
		return
	}
	if s.ipfs == nil {
		writeError(w, http.StatusInternalServerError, ipfs.ErrNotConfigured.Error())
		return
	}

	md := ipfs.NewMetadata(req.Name, req.Description, req.Image, time.Now())
	up, err := s.ipfs.UploadJSON(r.Context(), md)
	if err != nil {
		s.logger.Error("upload metadata to ipfs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.annotate(req.GenerationID, "ipfsMetadata", up.IPFSURL())
	writeJSON(w, http.StatusOK, newIPFSResponse(up))
}

func (s *Server) handleIPFSImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, s.tooLarge().msg)
			return
		}
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	if s.ipfs == nil {
		writeError(w, http.StatusInternalServerError, ipfs.ErrNotConfigured.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read image")
		return
	}
	up, err := s.ipfs.UploadFile(r.Context(), filepath.Base(header.Filename), data)
	if err != nil {
		s.logger.Error("upload image to ipfs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.annotate(strings.TrimSpace(r.FormValue("generationId")), "ipfsImage", up.IPFSURL())
	writeJSON(w, http.StatusOK, newIPFSResponse(up))
}

// annotate records an IPFS URL on a stored generation. Unknown ids are
// logged by the history writer and otherwise ignored.
func (s *Server) annotate(id, key, value string) {
	if id == "" || s.history == nil {
		return
	}
	s.history.Annotate(id, map[string]any{key: value})
}
