package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/club-expenses/internal/application/prioritization"
	"github.com/garyjia/club-expenses/internal/application/service"
	"github.com/garyjia/club-expenses/internal/domain/entity"
	"github.com/garyjia/club-expenses/internal/domain/role"
)

const dateLayout = "2006-01-02"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	config   ServerConfig
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, config ServerConfig, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		config:   config,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SignInRequest carries an identity provider credential
type SignInRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// SignInResponse is returned after a successful sign-in
type SignInResponse struct {
	Token     string           `json:"token"`
	Principal entity.Principal `json:"principal"`
}

// SubmitExpenseRequest is the body of POST /api/expenses
type SubmitExpenseRequest struct {
	ClubID      string  `json:"clubId"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	ReceiptURL  string  `json:"receiptUrl"`
}

// SetStatusRequest is the body of PUT /api/expenses/:id/status
type SetStatusRequest struct {
	Status entity.ExpenseStatus `json:"status" binding:"required"`
}

// CommentRequest is the body of POST /api/expenses/:id/comment
type CommentRequest struct {
	Comment string `json:"comment"`
}

// RegisterClubRequest is the body of POST /api/clubs
type RegisterClubRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SubmitRequestRequest is the body of POST /api/requests
type SubmitRequestRequest struct {
	ClubID string `json:"clubId"`
}

// ExpenseQuery holds the filters of expense list and export requests
type ExpenseQuery struct {
	Description string `form:"description"`
	ClubID      string `form:"clubId"`
	From        string `form:"from"`
	To          string `form:"to"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SignIn handles POST /api/auth/sign-in
func (h *Handlers) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "credential is required")
		return
	}

	sess, err := h.services.Sessions.SignIn(c.Request.Context(), req.Credential)
	if err != nil {
		h.fail(c, "Sign-in failed", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    SignInResponse{Token: sess.Token, Principal: sess.Principal},
	})
}

// SignOut handles POST /api/auth/sign-out
func (h *Handlers) SignOut(c *gin.Context) {
	sess := currentSession(c)
	if err := h.services.Sessions.SignOut(c.Request.Context(), sess.Token); err != nil {
		h.fail(c, "Sign-out failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// GetSession handles GET /api/session and returns the current read model
// without waiting for it to be Ready
func (h *Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: currentSession(c).Model()})
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	actor, model, ok := h.actor(c)
	if !ok {
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	visible := service.VisibleExpenses(actor.ID, actor.Role, model.Clubs, model.Expenses)
	c.JSON(http.StatusOK, Response{Success: true, Data: filter.Apply(visible)})
}

// Summary handles GET /api/expenses/summary
func (h *Handlers) Summary(c *gin.Context) {
	actor, model, ok := h.actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: service.Summarize(actor.ID, model.Expenses)})
}

// ExportExpenses handles GET /api/expenses/export
func (h *Handlers) ExportExpenses(c *gin.Context) {
	actor, model, ok := h.actor(c)
	if !ok {
		return
	}
	if !role.Can(actor.Role, role.ActionExportReport) {
		writeError(c, service.ErrForbidden)
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.services.Reports.WriteExpenses(c.Request.Context(), &buf, filter.Apply(model.Expenses)); err != nil {
		h.fail(c, "Failed to export expenses", err)
		return
	}

	name := fmt.Sprintf("expenses-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, h.services.Reports.ContentType(), buf.Bytes())
}

// SubmitExpense handles POST /api/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	actor, _, ok := h.actor(c)
	if !ok {
		return
	}
	var req SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	expense, err := h.services.Expenses.Submit(c.Request.Context(), actor, service.SubmitExpenseInput{
		ClubID:      req.ClubID,
		Description: req.Description,
		Amount:      req.Amount,
		ReceiptURL:  req.ReceiptURL,
	})
	if err != nil {
		h.fail(c, "Failed to submit expense", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: expense})
}

// SetExpenseStatus handles PUT /api/expenses/:id/status
func (h *Handlers) SetExpenseStatus(c *gin.Context) {
	actor, _, ok := h.actor(c)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	if err := h.services.Expenses.SetStatus(c.Request.Context(), actor, c.Param("id"), req.Status); err != nil {
		h.fail(c, "Failed to set expense status", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// FlagExpense handles POST /api/expenses/:id/flag
func (h *Handlers) FlagExpense(c *gin.Context) {
	actor, _, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.services.Expenses.Flag(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.fail(c, "Failed to flag expense", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// CommentExpense handles POST /api/expenses/:id/comment
func (h *Handlers) CommentExpense(c *gin.Context) {
	actor, _, ok := h.actor(c)
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := h.services.Expenses.Comment(c.Request.Context(), actor, c.Param("id"), req.Comment); err != nil {
		h.fail(c, "Failed to comment on expense", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// Prioritize handles POST /api/expenses/prioritize. A failed ranking is
// reported in the review state; the status code tells the two kinds apart.
func (h *Handlers) Prioritize(c *gin.Context) {
	actor, model, ok := h.actor(c)
	if !ok {
		return
	}
	if !role.Can(actor.Role, role.ActionPrioritize) {
		writeError(c, service.ErrForbidden)
		return
	}

	state := currentSession(c).Review.Run(c.Request.Context(), model.Expenses)
	switch state.ErrorKind {
	case prioritization.KindQuotaExceeded:
		c.JSON(http.StatusTooManyRequests, Response{Success: false, Data: state, Error: state.Error})
	case prioritization.KindFailed:
		c.JSON(http.StatusBadGateway, Response{Success: false, Data: state, Error: state.Error})
	default:
		c.JSON(http.StatusOK, Response{Success: true, Data: state})
	}
}

// PrioritizeState handles GET /api/expenses/prioritize
func (h *Handlers) PrioritizeState(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: currentSession(c).Review.State()})
}

// RegisterClub handles POST /api/clubs
func (h *Handlers) RegisterClub(c *gin.Context) {
	actor, _, ok := h.actor(c)
	if !ok {
		return
	}
	var req RegisterClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	club, err := h.services.Clubs.Register(c.Request.Context(), actor, service.RegisterClubInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.fail(c, "Failed to register club", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: club})
}

// SubmitRequest handles POST /api/requests
func (h *Handlers) SubmitRequest(c *gin.Context) {
	actor, _, ok := h.actor(c)
	if !ok {
		return
	}
	var req SubmitRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	request, err := h.services.Requests.Submit(c.Request.Context(), actor, req.ClubID)
	if err != nil {
		h.fail(c, "Failed to submit representative request", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: request})
}

// ApproveRequest handles POST /api/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	h.decide(c, true)
}

// RejectRequest handles POST /api/requests/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	h.decide(c, false)
}

func (h *Handlers) decide(c *gin.Context, approve bool) {
	actor, _, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.services.Requests.Decide(c.Request.Context(), actor, c.Param("id"), approve); err != nil {
		h.fail(c, "Failed to decide representative request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// UploadReceipt handles POST /api/receipts with a multipart "file" field
func (h *Handlers) UploadReceipt(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if header.Size > h.config.MaxUploadBytes {
		badRequest(c, fmt.Sprintf("file exceeds %d bytes", h.config.MaxUploadBytes))
		return
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, "Failed to open upload", err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, "Failed to read upload", err)
		return
	}

	stored, err := h.services.Receipts.Save(c.Request.Context(), header.Filename, content)
	if err != nil {
		h.fail(c, "Failed to store receipt", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: stored})
}

// ServeReceipt handles GET <receipts path>/*name
func (h *Handlers) ServeReceipt(c *gin.Context) {
	path, err := h.services.Receipts.Open(c.Request.Context(), c.Param("name")[1:])
	if err != nil {
		writeError(c, err)
		return
	}
	c.File(path)
}

// bindFilter parses the expense filter query. Dates are inclusive days.
func (h *Handlers) bindFilter(c *gin.Context) (service.ExpenseFilter, bool) {
	var q ExpenseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return service.ExpenseFilter{}, false
	}

	filter := service.ExpenseFilter{Description: q.Description, ClubID: q.ClubID}
	if q.From != "" {
		from, err := time.Parse(dateLayout, q.From)
		if err != nil {
			badRequest(c, "from must be a YYYY-MM-DD date")
			return filter, false
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse(dateLayout, q.To)
		if err != nil {
			badRequest(c, "to must be a YYYY-MM-DD date")
			return filter, false
		}
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	return filter, true
}

// fail writes err to the response, logging it when it is a server error
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	if status, _ := statusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err, "path", c.Request.URL.Path)
	}
	writeError(c, err)
}
