// Package api exposes the ingestion pipeline over HTTP: uploads, job runs,
// and job status.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coeus/internal/config"
	"coeus/internal/models"
	"coeus/internal/storage"
	"coeus/internal/util"
	"coeus/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg      config.Config
	db       *storage.DB
	userRepo *storage.UserRepo
	jobRepo  *storage.JobRepo
	temporal tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{
		cfg:      cfg,
		db:       db,
		userRepo: storage.NewUserRepo(db),
		jobRepo:  storage.NewJobRepo(db),
		temporal: tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/ingest/", s.handleIngestScoped)
	mux.HandleFunc("/jobs/", s.handleJobsScoped)
	mux.HandleFunc("/users", s.handleUsers)
	mux.HandleFunc("/users/", s.handleUsersScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleUpload accepts a single PDF plus a user_name form field. It creates
// the user on first sight, allocates a job, and stores the file under the
// job's upload directory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	userName := strings.TrimSpace(r.FormValue("user_name"))
	if userName == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("user_name is required"))
		return
	}

	var fh *multipart.FileHeader
	if files := r.MultipartForm.File["file"]; len(files) > 0 {
		fh = files[0]
	} else if single, ok := firstSingleFile(r.MultipartForm.File); ok {
		fh = single
	}
	if fh == nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("only pdf uploads are supported"))
		return
	}

	user, err := s.userRepo.UpsertUser(r.Context(), userName)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	jobID := uuid.NewString()
	jobDir := filepath.Join(s.cfg.UploadRoot, jobID)
	if err := util.EnsureDir(jobDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	savedPath, err := saveUploadedFile(jobDir, fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	if err := s.jobRepo.CreateJob(r.Context(), models.Job{
		JobID:    jobID,
		UserID:   user.UserID,
		Filename: filepath.Base(savedPath),
		Status:   models.StatusPending,
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "uploaded",
		"job_id":   jobID,
		"user_id":  user.UserID,
		"filename": filepath.Base(savedPath),
	})
}

func (s *Server) handleIngestScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/ingest/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "run" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	jobID := parts[0]

	job, err := s.jobRepo.GetJob(r.Context(), jobID)
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("job not found: %w", err))
		return
	}
	pdfPath := filepath.Join(s.cfg.UploadRoot, jobID, job.Filename)
	if _, err := os.Stat(pdfPath); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no uploaded file found for this job"))
		return
	}

	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                    "ingest-" + jobID,
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, workflows.IngestJobWorkflow, workflows.IngestJobInput{
		JobID:    jobID,
		UserID:   job.UserID,
		UserName: job.UserName,
		PDFPath:  pdfPath,
		Filename: job.Filename,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}

	var state workflows.JobState
	if err := we.Get(r.Context(), &state); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if state.Status == models.StatusFailed {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status": models.StatusFailed,
			"job_id": jobID,
			"error":  state.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "success",
		"job_id":         jobID,
		"vectors_stored": state.ChromaCount,
		"docs_indexed":   state.ElasticCount,
	})
}

func (s *Server) handleJobsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/"), "/")
	if len(parts) != 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	jobID := parts[0]

	// Prefer the live workflow view; fall back to the persisted row once the
	// workflow is gone.
	var state workflows.JobState
	resp, err := s.temporal.QueryWorkflow(r.Context(), "ingest-"+jobID, "", workflows.QueryGetJobState)
	if err == nil {
		if err := resp.Get(&state); err == nil {
			writeJSON(w, http.StatusOK, state)
			return
		}
	}

	job, err := s.jobRepo.GetJob(r.Context(), jobID)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := s.userRepo.ListUsers(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req struct {
			UserName string `json:"user_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.UserName = strings.TrimSpace(req.UserName)
		if req.UserName == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("user_name is required"))
			return
		}
		user, err := s.userRepo.UpsertUser(r.Context(), req.UserName)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleUsersScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "jobs" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	jobs, err := s.jobRepo.ListJobsByUser(r.Context(), parts[0])
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	finalPath := util.SafeJoin(dstDir, fh.Filename)
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("atomic move upload: %w", err)
	}
	return finalPath, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "CS-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "CS-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "CS-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "CS-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "CS-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "CS-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "CS-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "CS-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "user_name is required"):
			msg = "User name is required."
		case strings.Contains(low, "no files provided"):
			msg = "No PDF file was provided."
		case strings.Contains(low, "only pdf uploads"):
			msg = "Only PDF uploads are supported."
		case strings.Contains(low, "no uploaded file found"):
			msg = "No uploaded file found for this job."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
