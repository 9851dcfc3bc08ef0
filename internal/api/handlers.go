package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/domain"
	"course-eligibility/internal/eligibility"
	"course-eligibility/internal/subjects"
)

// StatusClientClosedRequest is reported when the caller went away before
// the determination finished.
const StatusClientClosedRequest = 499

type errorResponse struct {
	Error     string                `json:"error"`
	RequestID string                `json:"request_id,omitempty"`
	Problems  []eligibility.Problem `json:"problems,omitempty"`
}

func (s *Server) determine(c *gin.Context) {
	var req eligibility.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error:     "request body is not valid JSON: " + err.Error(),
			RequestID: c.GetString(requestIDKey),
		})
		return
	}
	req.RequestID = c.GetString(requestIDKey)
	if cat, ok := domain.ParseCategory(string(req.Category)); ok {
		req.Category = cat
	}

	ctx := c.Request.Context()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	res, err := s.Engine.DetermineEligibility(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) listSubjects(c *gin.Context) {
	refs, err := s.Catalog.SubjectReference(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if len(refs) == 0 {
		refs = subjects.DefaultReference()
	}
	c.JSON(http.StatusOK, gin.H{"subjects": refs})
}

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories":        domain.Categories(),
		"institution_types": eligibility.InstitutionTypes(),
	})
}

// health reports whether the catalog answers.
func (s *Server) health(c *gin.Context) {
	if _, err := s.Catalog.SubjectReference(c.Request.Context()); err != nil {
		s.Logger.Warn("health check failed", "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) writeError(c *gin.Context, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: c.GetString(requestIDKey)}
	status := StatusFor(err)

	var verr *eligibility.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "invalid request"
		resp.Problems = verr.Problems
	}
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "request_id", resp.RequestID, "error", err)
		resp.Error = "internal error"
	}
	c.JSON(status, resp)
}

// StatusFor maps an engine or catalog error onto an HTTP status.
func StatusFor(err error) int {
	var verr *eligibility.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
