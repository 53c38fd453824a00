// Package chi exposes the question answering and exam API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/study-cloud/studyrag/internal/domain"
	"github.com/study-cloud/studyrag/internal/parser"
	healthuc "github.com/study-cloud/studyrag/internal/usecase/health"
)

// Answerer resolves a question to a grounded answer.
type Answerer interface {
	Answer(ctx context.Context, query string) (string, domain.RetrievalResult)
}

// Composer generates exam questions from document text.
type Composer interface {
	Compose(ctx context.Context, documentText string, numQuestions int) ([]domain.ExamQuestion, error)
}

// Grader scores a full exam submission.
type Grader interface {
	GradeAll(ctx context.Context, questions []domain.ExamQuestion, answers map[int]string) ([]domain.GradingOutcome, domain.ExamStatistics)
}

// HealthChecker reports component availability.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Config holds transport-level settings.
type Config struct {
	CorpusDir    string
	MaxQuestions int
}

// Server implements the HTTP handlers.
type Server struct {
	answers Answerer
	exams   Composer
	grader  Grader
	health  HealthChecker
	cfg     Config
	logger  *zap.Logger

	// injectable for tests
	readFile  func(path string) (string, error)
	listFiles func(dir string) ([]string, error)
}

// NewServer creates an HTTP API server.
func NewServer(
	answers Answerer,
	exams Composer,
	grader Grader,
	health HealthChecker,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 20
	}
	return &Server{
		answers:   answers,
		exams:     exams,
		grader:    grader,
		health:    health,
		cfg:       cfg,
		logger:    logger,
		readFile:  parser.ReadFile,
		listFiles: parser.ListFiles,
	}
}

// Routes registers every endpoint on a fresh router. Middleware is wired by
// the caller so the composition root decides ordering.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/query", s.Query)
	r.Post("/exam/generate", s.ExamGenerate)
	r.Post("/exam/grade", s.ExamGrade)
	r.Get("/exam/files", s.ExamFiles)
	r.Post("/read/content", s.ReadContent)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	return r
}

type chunkPayload struct {
	Text       string  `json:"text"`
	SourceFile string  `json:"source_file"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Success         bool           `json:"success"`
	Query           string         `json:"query"`
	Answer          string         `json:"answer"`
	RetrievedChunks []chunkPayload `json:"retrieved_chunks"`
	HasContext      bool           `json:"has_context"`
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeBadRequest(w, "query is required")
		return
	}

	answer, res := s.answers.Answer(r.Context(), req.Query)

	// Chunks are reported only when retrieval cleared the confidence gate.
	chunks := make([]chunkPayload, 0)
	if res.Accepted {
		for _, m := range res.Matches {
			chunks = append(chunks, chunkPayload{
				Text:       m.Text,
				SourceFile: m.SourceFile,
				ChunkIndex: m.ChunkIndex,
				Score:      m.Score,
			})
		}
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Success:         true,
		Query:           req.Query,
		Answer:          answer,
		RetrievedChunks: chunks,
		HasContext:      len(chunks) > 0,
	})
}

type examGenerateRequest struct {
	FileName     string `json:"file_name"`
	NumQuestions int    `json:"num_questions"`
}

type examGenerateResponse struct {
	Success        bool                  `json:"success"`
	Questions      []domain.ExamQuestion `json:"questions"`
	TotalQuestions int                   `json:"total_questions"`
}

// ExamGenerate handles POST /exam/generate.
func (s *Server) ExamGenerate(w http.ResponseWriter, r *http.Request) {
	var req examGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if !validFilename(req.FileName) {
		writeBadRequest(w, "file_name is required and must not contain path separators")
		return
	}
	if req.NumQuestions <= 0 {
		req.NumQuestions = 5
	}
	if req.NumQuestions > s.cfg.MaxQuestions {
		writeBadRequest(w, "num_questions exceeds the maximum")
		return
	}

	text, err := s.readFile(s.corpusPath(req.FileName))
	if err != nil {
		s.writeDomainFailure(w, err)
		return
	}

	questions, err := s.exams.Compose(r.Context(), text, req.NumQuestions)
	if err != nil {
		s.writeDomainFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, examGenerateResponse{
		Success:        true,
		Questions:      questions,
		TotalQuestions: len(questions),
	})
}

type examGradeRequest struct {
	Questions []domain.ExamQuestion `json:"questions"`
	Answers   map[int]string        `json:"answers"`
}

type examGradeResponse struct {
	Success    bool                    `json:"success"`
	Results    []domain.GradingOutcome `json:"results"`
	Statistics domain.ExamStatistics   `json:"statistics"`
}

// ExamGrade handles POST /exam/grade.
func (s *Server) ExamGrade(w http.ResponseWriter, r *http.Request) {
	var req examGradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if len(req.Questions) == 0 {
		writeBadRequest(w, "questions are required")
		return
	}
	for i, q := range req.Questions {
		if !q.Type.Valid() {
			writeBadRequest(w, fmt.Sprintf("question %d has unknown type %q", i+1, q.Type))
			return
		}
	}

	results, stats := s.grader.GradeAll(r.Context(), req.Questions, req.Answers)

	writeJSON(w, http.StatusOK, examGradeResponse{
		Success:    true,
		Results:    results,
		Statistics: stats,
	})
}

type examFilesResponse struct {
	Success bool     `json:"success"`
	Files   []string `json:"files"`
}

// ExamFiles handles GET /exam/files.
func (s *Server) ExamFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.listFiles(s.cfg.CorpusDir)
	if err != nil {
		s.writeDomainFailure(w, err)
		return
	}
	if files == nil {
		files = []string{}
	}

	writeJSON(w, http.StatusOK, examFilesResponse{
		Success: true,
		Files:   files,
	})
}

type readContentRequest struct {
	FileName string `json:"file_name"`
}

type readContentResponse struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	FileName string `json:"file_name"`
}

// ReadContent handles POST /read/content.
func (s *Server) ReadContent(w http.ResponseWriter, r *http.Request) {
	var req readContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if !validFilename(req.FileName) {
		writeBadRequest(w, "file_name is required and must not contain path separators")
		return
	}

	text, err := s.readFile(s.corpusPath(req.FileName))
	if err != nil {
		s.writeDomainFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, readContentResponse{
		Success:  true,
		Content:  text,
		FileName: req.FileName,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"ready":  report.Ready,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) corpusPath(name string) string {
	return strings.TrimRight(s.cfg.CorpusDir, "/") + "/" + name
}

// validFilename rejects empty names and anything that could escape the
// corpus directory.
func validFilename(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return true
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Raw     string `json:"raw,omitempty"`
}

// writeDomainFailure reports a domain-level failure inside a 200 payload so
// clients branch on the success flag. Unexpected errors stay opaque.
func (s *Server) writeDomainFailure(w http.ResponseWriter, err error) {
	s.logger.Warn("request failed", zap.Error(err))

	var perr *domain.ParseError
	if errors.As(err, &perr) {
		writeJSON(w, http.StatusOK, failureResponse{
			Error: "exam reply could not be parsed: " + perr.Reason,
			Raw:   perr.Raw,
		})
		return
	}

	msg := safeDomainMessage(err)
	if msg == "" {
		s.logger.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, failureResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, failureResponse{Error: msg})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals. Empty means the error is not a known domain failure.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrFileNotFound,
		domain.ErrUnsupportedFormat,
		domain.ErrEmptyDocument,
		domain.ErrExamParse,
		domain.ErrGenerationFailed,
		domain.ErrModelProviderError,
		domain.ErrNoContext,
		domain.ErrBelowThreshold,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, failureResponse{Error: message})
}
