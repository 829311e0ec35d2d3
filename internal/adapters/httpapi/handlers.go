package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicedesk/internal/dashboard"
	"invoicedesk/pkg/domain"
)

type loginRequest struct {
	User string `json:"user" binding:"required"`
}

type sessionResponse struct {
	User   string `json:"user,omitempty"`
	Active bool   `json:"active"`
}

type mutationResponse struct {
	Invoice    domain.Invoice     `json:"invoice"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

type draftRequest struct {
	Invoice     domain.Invoice `json:"invoice"`
	DocumentRef string         `json:"documentRef"`
}

type draftResponse struct {
	Invoice domain.Invoice `json:"invoice"`
	Saved   bool           `json:"saved"`
}

const maxCandidateBytes = 1 << 20

func (s *Server) getSession(c *gin.Context) {
	user, active := s.gate.Current()
	c.JSON(http.StatusOK, sessionResponse{User: user, Active: active})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.gate.Login(c.Request.Context(), req.User); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.svc.LoadErr(); err != nil {
		s.writeError(c, err)
		return
	}
	s.getSession(c)
}

func (s *Server) logout(c *gin.Context) {
	if err := s.gate.Logout(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}
	s.getSession(c)
}

func (s *Server) listInvoices(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.LoadErr(); err != nil {
		s.writeError(c, err)
		return
	}
	invoices, _ := s.svc.Dashboard(q)
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) exportInvoices(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.LoadErr(); err != nil {
		s.writeError(c, err)
		return
	}
	invoices, _ := s.svc.Dashboard(q)
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="invoices.csv"`)
	c.Status(http.StatusOK)
	if err := dashboard.WriteCSV(c.Writer, invoices); err != nil {
		s.logger.Error("write invoice export failed", "error", err)
	}
}

func (s *Server) invoiceStats(c *gin.Context) {
	if err := s.svc.LoadErr(); err != nil {
		s.writeError(c, err)
		return
	}
	_, stats := s.svc.Dashboard(dashboard.DefaultQuery())
	c.JSON(http.StatusOK, stats)
}

func (s *Server) submitInvoice(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCandidateBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(c, err)
			return
		}
		badRequest(c, err)
		return
	}
	created, res, err := s.svc.Submit(c.Request.Context(), body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mutationResponse{Invoice: created, Violations: res.Violations})
}

func (s *Server) seedInvoices(c *gin.Context) {
	added, err := s.svc.Seed(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (s *Server) updateInvoice(c *gin.Context) {
	var patch domain.InvoicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	updated, res, err := s.svc.UpdateInvoice(c.Request.Context(), c.Param("id"), patch)
	s.writeMutation(c, updated, res, err)
}

func (s *Server) deleteInvoice(c *gin.Context) {
	if _, err := s.svc.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) invoiceAction(c *gin.Context) {
	action, err := domain.ParseAction(c.Param("action"))
	if err != nil {
		badRequest(c, err)
		return
	}
	updated, res, err := s.svc.HandleAction(c.Request.Context(), action, c.Param("id"))
	if action == domain.ActionDelete && err == nil {
		c.Status(http.StatusNoContent)
		return
	}
	s.writeMutation(c, updated, res, err)
}

// writeMutation answers 204 when the target id matched nothing.
func (s *Server) writeMutation(c *gin.Context, inv domain.Invoice, res domain.Result, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	if inv.InvoiceID == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{Invoice: inv, Violations: res.Violations})
}

func (s *Server) getDraft(c *gin.Context) {
	draft, found, err := s.svc.LoadDraft(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !found {
		draft = s.svc.NewDraft()
	}
	c.JSON(http.StatusOK, draftResponse{Invoice: draft, Saved: found})
}

func (s *Server) saveDraft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.SaveDraft(c.Request.Context(), req.Invoice, req.DocumentRef); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) uploadDocument(c *gin.Context) {
	user, active := s.gate.Current()
	if !active {
		s.writeError(c, domain.ErrNoActiveSession)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("multipart field \"file\": %w", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer func() { _ = f.Close() }()
	doc, err := s.docs.Attach(c.Request.Context(), user, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) getDocument(c *gin.Context) {
	ref := c.Query("ref")
	if ref == "" {
		s.listDocuments(c)
		return
	}
	info, rc, err := s.docs.Open(c.Request.Context(), ref)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer func() { _ = rc.Close() }()
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, nil)
}

func (s *Server) listDocuments(c *gin.Context) {
	user, active := s.gate.Current()
	if !active {
		s.writeError(c, domain.ErrNoActiveSession)
		return
	}
	docs, err := s.docs.List(c.Request.Context(), user)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func parseQuery(c *gin.Context) (dashboard.Query, error) {
	q := dashboard.DefaultQuery()
	q.Search = c.Query("search")
	var err error
	if q.Status, err = dashboard.ParseStatusFilter(c.Query("status")); err != nil {
		return q, err
	}
	if q.SortKey, err = dashboard.ParseSortKey(c.Query("sort")); err != nil {
		return q, err
	}
	if q.Direction, err = dashboard.ParseDirection(c.Query("direction")); err != nil {
		return q, err
	}
	return q, nil
}
