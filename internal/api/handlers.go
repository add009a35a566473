package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dunamismax/blastflow/internal/auth"
	"github.com/dunamismax/blastflow/internal/dispatch"
	"github.com/dunamismax/blastflow/internal/domain"
	"github.com/dunamismax/blastflow/internal/export"
	"github.com/dunamismax/blastflow/internal/storage"
	"github.com/dunamismax/blastflow/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userReply struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidUser):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrUserExists):
		writeError(w, r, http.StatusConflict, "username already exists")
		return
	case err != nil:
		s.logger.Error("register user", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to register user")
		return
	}

	writeJSON(w, r, http.StatusCreated, userReply{
		ID:        user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
	})
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	var req domain.StartJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = user.ID

	jobID, err := s.jobs.StartJob(r.Context(), req)
	if err != nil {
		if errors.Is(err, dispatch.ErrInvalidRequest) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("start job", zap.String("username", user.Username), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to start job")
		return
	}

	s.metrics.jobsSubmitted.Inc()
	writeJSON(w, r, http.StatusAccepted, map[string]string{
		"job_id":     jobID,
		"status_url": fmt.Sprintf("/v1/jobs/%s", jobID),
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())

	jobs, err := s.jobs.ListJobs(r.Context(), store.JobFilter{UserID: user.ID, All: user.IsAdmin})
	if err != nil {
		s.logger.Error("list jobs", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, domain.JobStatus{Progress: job.Progress, Status: job.Status})
}

func (s *Server) handleJobResults(w http.ResponseWriter, r *http.Request) {
	results, ok := s.loadResults(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	results, ok := s.loadResults(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, results); err != nil {
		s.logger.Error("export csv", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to export results")
		return
	}
	attachment(w, "text/csv", chi.URLParam(r, "jobID")+".csv")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	results, ok := s.loadResults(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, results); err != nil {
		s.logger.Error("export xlsx", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to export results")
		return
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", chi.URLParam(r, "jobID")+".xlsx")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleJobReport(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}

	accession := chi.URLParam(r, "accession")
	report, err := s.jobs.JobReport(r.Context(), job.ID, accession)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			writeError(w, r, http.StatusNotFound, "report not found")
			return
		}
		s.logger.Error("load report", zap.String("job_id", job.ID), zap.String("accession", accession), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load report")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	if !user.IsAdmin {
		writeError(w, r, http.StatusForbidden, "only admins can delete jobs")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	if err := s.jobs.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeError(w, r, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("delete job", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to delete job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadJob fetches the job named in the path and checks the caller may see
// it. It writes the error response itself.
func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (domain.Job, bool) {
	user, _ := userFrom(r.Context())
	jobID := chi.URLParam(r, "jobID")

	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			writeError(w, r, http.StatusNotFound, "job not found")
			return domain.Job{}, false
		}
		s.logger.Error("load job", zap.String("job_id", jobID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load job")
		return domain.Job{}, false
	}
	if !user.IsAdmin && job.UserID != user.ID {
		writeError(w, r, http.StatusForbidden, "job belongs to another user")
		return domain.Job{}, false
	}
	return job, true
}

func (s *Server) loadResults(w http.ResponseWriter, r *http.Request) ([]domain.ResultRecord, bool) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return nil, false
	}

	results, err := s.jobs.JobResults(r.Context(), job.ID)
	if err != nil {
		s.logger.Error("load results", zap.String("job_id", job.ID), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "failed to load results")
		return nil, false
	}
	if results == nil {
		results = []domain.ResultRecord{}
	}
	return results, true
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "blast_results_"+filename))
}
