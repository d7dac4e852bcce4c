package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// maxUploadBytes bounds multipart document uploads.
const maxUploadBytes = 64 << 20

type ingestRequest struct {
	Content string `json:"content"`
	Name    string `json:"name"`
}

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type deleteChunksRequest struct {
	IDs []string `json:"ids"`
}

// handleIngestDocument accepts either a JSON body with raw content or a
// multipart file upload routed through the document parser. Input
// validation lives here; the pipeline itself never raises.
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		s.handleIngestUpload(w, r)
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Name == "" {
		req.Name = "untitled"
	}

	s.logger.Debug("ingest request", zap.String("name", req.Name), zap.Int("bytes", len(req.Content)))
	result := s.pipeline.Ingest(r.Context(), req.Content, req.Name)
	s.respondJSON(w, ingestStatus(result), result)
}

func (s *Server) handleIngestUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !s.parser.IsSupported(header.Filename) {
		s.respondError(w, http.StatusUnsupportedMediaType, "unsupported file type: "+header.Filename)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	parsed := s.parser.Parse(data, header.Filename)
	if !parsed.Success {
		s.logger.Warn("parse failed", zap.String("file", header.Filename), zap.String("error", parsed.Err))
		s.respondError(w, http.StatusUnprocessableEntity, "failed to parse document: "+parsed.Err)
		return
	}
	if strings.TrimSpace(parsed.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "document contains no text")
		return
	}

	s.logger.Debug("upload ingest request", zap.String("file", header.Filename), zap.Int("bytes", len(data)))
	result := s.pipeline.Ingest(r.Context(), parsed.Text, header.Filename)
	s.respondJSON(w, ingestStatus(result), result)
}

// ingestStatus maps an IngestResult onto an HTTP status. Pipeline failures
// are reported in the result body, not as transport errors; only a created
// ingestion gets 201.
func ingestStatus(result models.IngestResult) int {
	if result.Success {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.respondJSON(w, http.StatusOK, map[string]any{"documents": []any{}})
		return
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	docs, err := s.registry.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.DocumentRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("query request", zap.String("question", req.Question), zap.Int("top_k", req.TopK))
	result := s.pipeline.Query(r.Context(), req.Question, req.TopK)
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	chunks := s.pipeline.ListChunks(r.Context(), limit)
	if chunks == nil {
		chunks = []models.ChunkInfo{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func (s *Server) handleDeleteChunks(w http.ResponseWriter, r *http.Request) {
	var req deleteChunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	deleted := s.pipeline.DeleteChunks(r.Context(), req.IDs)
	s.respondJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) handleClearCollection(w http.ResponseWriter, r *http.Request) {
	ok := s.pipeline.ClearCollection(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}
	s.respondJSON(w, status, map[string]bool{"success": ok})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]any{
		"collection": s.config.Qdrant.Collection,
		"points":     s.pipeline.DocumentCount(ctx),
		"config": map[string]any{
			"max_chunk_size":  s.config.RAG.MaxChunkSize,
			"chunk_overlap":   s.config.RAG.ChunkOverlap,
			"top_k":           s.config.RAG.TopK,
			"score_threshold": s.config.RAG.ScoreThreshold,
			"dimensions":      s.config.Embedding.Dimensions,
		},
	}
	if s.registry != nil {
		count, err := s.registry.CountDocuments(ctx)
		if err != nil {
			s.logger.Warn("status: count documents failed", zap.Error(err))
		} else {
			resp["documents"] = count
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
