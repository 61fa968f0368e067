package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := models.Validate(&req); err != nil {
		s.respondValidation(w, err)
		return
	}
	k := req.TopK
	if k == 0 {
		k = s.answerer.TopK()
	}
	id := requestID(r)
	s.logger.Debug("ask request", zap.String("request_id", id), zap.Int("top_k", k))

	answer := s.answerer.AskWithTopK(r.Context(), req.Query, k)
	resp := models.NewAskResponse(answer)
	resp.RequestID = id
	resp.TookMS = time.Since(start).Milliseconds()
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := models.Validate(&req); err != nil {
		s.respondValidation(w, err)
		return
	}
	added, err := s.ingester.IngestTexts(r.Context(), req.Documents)
	if errors.Is(err, vector.ErrEmptyInput) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Debug("documents ingested", zap.Int("chunks", added))
	s.respondJSON(w, http.StatusCreated, models.IngestResponse{Added: added, Total: s.index.DocumentCount()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := models.StatusResponse{
		Documents:  s.index.DocumentCount(),
		Vectors:    s.index.Size(),
		IndexType:  s.index.Type(),
		Dimensions: s.index.Dimensions(),
		WebSearch:  s.answerer.WebEnabled(),
	}
	if s.ledger != nil {
		sources, err := s.ledger.Count(ctx)
		if err != nil {
			s.logger.Error("status: count sources failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		chunks, err := s.ledger.TotalChunks(ctx)
		if err != nil {
			s.logger.Error("status: count chunks failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Sources = sources
		resp.SourceChunks = chunks
	}
	if s.cfg != nil {
		resp.Config = map[string]any{
			"embedding_provider": s.cfg.Embedding.Provider,
			"llm_model":          s.cfg.LLM.Model,
			"top_k":              s.answerer.TopK(),
			"max_context_length": s.cfg.RAG.MaxContextLength,
			"chunk_size":         s.cfg.Ingest.ChunkSize,
			"chunk_overlap":      s.cfg.Ingest.ChunkOverlap,
			"index_path":         s.cfg.Storage.IndexPath,
			"ledger_path":        s.cfg.Storage.LedgerPath,
		}
		diskBytes, err := storage.DiskUsageBytes(
			s.cfg.Storage.IndexPath,
			vector.DocumentsPath(s.cfg.Storage.IndexPath),
			s.cfg.Storage.LedgerPath,
		)
		if err == nil {
			resp.DiskUsageBytes = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.cfg == nil || s.cfg.Storage.IndexPath == "" {
		s.respondError(w, http.StatusInternalServerError, "index path not configured")
		return
	}
	path := s.cfg.Storage.IndexPath
	save := func() error { return s.index.Save(path) }
	if err := s.ingester.Checkpoint(r.Context(), save); err != nil {
		s.logger.Error("index save failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("index saved", zap.String("path", path))
	s.respondJSON(w, http.StatusOK, models.SaveResponse{Path: path, Documents: s.index.DocumentCount()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path" validate:"required"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := models.Validate(&req); err != nil {
		s.respondValidation(w, err)
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.configPath != "" && s.cfg != nil {
		s.configMu.Lock()
		s.cfg.Ingest.Directories = s.watch.Directories()
		err := config.Save(s.configPath, s.cfg)
		s.configMu.Unlock()
		if err != nil {
			s.logger.Warn("failed to persist watch config", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

// decode reads a JSON body into v and writes a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}

func (s *Server) respondValidation(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		s.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: verr.Message, Fields: verr.Fields})
		return
	}
	s.respondError(w, http.StatusBadRequest, err.Error())
}
