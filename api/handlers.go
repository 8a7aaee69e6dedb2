/*
handlers.go - HTTP API handlers for the investor profit engine

PURPOSE:
  Exposes the profit service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the profit, notify, fx and reports
  packages. No business rule lives here.

ENDPOINTS:
  Investors:
    GET    /api/investors                  List (?includeInactive, ?search)
    POST   /api/investors                  Create investor
    GET    /api/investors/{id}             Get investor
    PUT    /api/investors/{id}             Patch investor
    DELETE /api/investors/{id}             Deactivate (?force=true deletes)
    GET    /api/investors/{id}/balance     Current balance
    GET    /api/investors/{id}/transactions
    GET    /api/investors/{id}/profits     Distributions of the investor

  Transactions:
    GET/POST       /api/transactions
    GET/PUT/DELETE /api/transactions/{id}

  Financial years:
    GET/POST       /api/financial-years
    GET/PUT/DELETE /api/financial-years/{id}
    POST   .../{id}/calculate-distributions
    GET    .../{id}/distributions | summary | report
    PUT    .../{id}/approve-distributions
    POST   .../{id}/rollover-profits
    POST   .../{id}/distribute-profits
    PUT    .../{id}/close
    PUT    .../{id}/auto-rollover
    POST   /api/financial-years/execute-auto-rollover
    POST   /api/distributions/{id}/rollover

  Other:
    GET    /api/notifications?recipient=   PUT /api/notifications/{id}/read
    GET    /api/fx/rate                     GET /api/fx/convert
    GET    /api/admin/jobs                  POST /api/admin/jobs/{name}/run|start|stop

ACTOR:
  The acting admin is read from the X-Actor-ID header. Authentication
  happens upstream; a missing header acts as "anonymous".

ERROR HANDLING:
  Errors are returned as JSON {"error", "details"} with:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Duplicate key, or operation refused in the current state
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Abd-elrahmann/inestors-backend/fx"
	"github.com/Abd-elrahmann/inestors-backend/generic"
	"github.com/Abd-elrahmann/inestors-backend/notify"
	"github.com/Abd-elrahmann/inestors-backend/profit"
	"github.com/Abd-elrahmann/inestors-backend/reports"
)

// ActorHeader carries the acting admin's ID.
const ActorHeader = "X-Actor-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Deps are the collaborators behind the API. Optional ones may be nil;
// their endpoints then answer 503.
type Deps struct {
	Service       *profit.Service
	Notifications *notify.Sink
	FX            *fx.Converter
	Reports       *reports.Renderer
	Scheduler     *Scheduler
	Logger        *slog.Logger
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	svc       *profit.Service
	notes     *notify.Sink
	fx        *fx.Converter
	reports   *reports.Renderer
	scheduler *Scheduler
	log       *slog.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{
		svc:       d.Service,
		notes:     d.Notifications,
		fx:        d.FX,
		reports:   d.Reports,
		scheduler: d.Scheduler,
		log:       d.Logger.With(slog.String("component", "api")),
	}
}

func actorFrom(r *http.Request) generic.Actor {
	return generic.AdminActor(r.Header.Get(ActorHeader))
}

// =============================================================================
// INVESTOR HANDLERS
// =============================================================================

func (h *Handler) ListInvestors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := profit.InvestorFilter{
		IncludeInactive: queryBool(q.Get("includeInactive")),
		Search:          q.Get("search"),
	}
	list, err := h.svc.ListInvestors(r.Context(), f)
	if err != nil {
		writeServiceError(w, "Failed to list investors", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvestorDTOs(list))
}

func (h *Handler) CreateInvestor(w http.ResponseWriter, r *http.Request) {
	var req CreateInvestorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, "Invalid investor", err)
		return
	}
	inv, err := h.svc.CreateInvestor(r.Context(), in, actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to create investor", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvestorDTO(inv))
}

func (h *Handler) GetInvestor(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.GetInvestor(r.Context(), investorID(r))
	if err != nil {
		writeServiceError(w, "Failed to get investor", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvestorDTO(inv))
}

func (h *Handler) UpdateInvestor(w http.ResponseWriter, r *http.Request) {
	var req UpdateInvestorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := req.toPatch()
	if err != nil {
		writeServiceError(w, "Invalid investor", err)
		return
	}
	inv, err := h.svc.UpdateInvestor(r.Context(), investorID(r), p)
	if err != nil {
		writeServiceError(w, "Failed to update investor", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvestorDTO(inv))
}

func (h *Handler) DeleteInvestor(w http.ResponseWriter, r *http.Request) {
	force := queryBool(r.URL.Query().Get("force"))
	res, err := h.svc.RemoveInvestor(r.Context(), investorID(r), force, actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to remove investor", err)
		return
	}
	writeJSON(w, http.StatusOK, RemovalDTO{
		InvestorID:           string(res.InvestorID),
		Deactivated:          res.Deactivated,
		Deleted:              res.Deleted,
		DeletedTransactions:  res.DeletedTransactions,
		DeletedDistributions: res.DeletedDistributions,
	})
}

func (h *Handler) GetInvestorBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.InvestorBalance(r.Context(), investorID(r))
	if err != nil {
		writeServiceError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

func (h *Handler) GetInvestorTransactions(w http.ResponseWriter, r *http.Request) {
	id := investorID(r)
	if _, err := h.svc.GetInvestor(r.Context(), id); err != nil {
		writeServiceError(w, "Failed to get investor", err)
		return
	}
	txs, err := h.svc.ListTransactions(r.Context(), profit.TransactionFilter{InvestorID: id})
	if err != nil {
		writeServiceError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) GetInvestorProfits(w http.ResponseWriter, r *http.Request) {
	dists, err := h.svc.InvestorProfits(r.Context(), investorID(r))
	if err != nil {
		writeServiceError(w, "Failed to get profits", err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributionDTOs(dists))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := profit.TransactionFilter{
		InvestorID: profit.InvestorID(q.Get("investorId")),
		Type:       profit.TransactionType(q.Get("type")),
	}
	var err error
	if f.From, err = parseOptionalDate("from", optional(q.Get("from"))); err != nil {
		writeServiceError(w, "Invalid filter", err)
		return
	}
	if f.To, err = parseOptionalDate("to", optional(q.Get("to"))); err != nil {
		writeServiceError(w, "Invalid filter", err)
		return
	}
	txs, err := h.svc.ListTransactions(r.Context(), f)
	if err != nil {
		writeServiceError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, "Invalid transaction", err)
		return
	}
	tx, err := h.svc.CreateTransaction(r.Context(), in, actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.GetTransaction(r.Context(), profit.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.svc.UpdateTransaction(r.Context(), profit.TransactionID(chi.URLParam(r, "id")),
		profit.TransactionPatch{Reference: req.Reference, Notes: req.Notes})
	if err != nil {
		writeServiceError(w, "Failed to update transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransaction(r.Context(), profit.TransactionID(chi.URLParam(r, "id"))); err != nil {
		writeServiceError(w, "Failed to delete transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// FINANCIAL YEAR HANDLERS
// =============================================================================

func (h *Handler) ListFinancialYears(w http.ResponseWriter, r *http.Request) {
	var f profit.YearFilter
	for _, s := range splitList(r.URL.Query().Get("status")) {
		status := profit.YearStatus(s)
		if !status.Valid() {
			writeServiceError(w, "Invalid filter", generic.NewValidationError("status", "unknown status "+s))
			return
		}
		f.Statuses = append(f.Statuses, status)
	}
	years, err := h.svc.ListFinancialYears(r.Context(), f)
	if err != nil {
		writeServiceError(w, "Failed to list financial years", err)
		return
	}
	writeJSON(w, http.StatusOK, toFinancialYearDTOs(years))
}

func (h *Handler) CreateFinancialYear(w http.ResponseWriter, r *http.Request) {
	var req CreateFinancialYearRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, "Invalid financial year", err)
		return
	}
	fy, err := h.svc.CreateFinancialYear(r.Context(), in, actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to create financial year", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFinancialYearDTO(fy))
}

func (h *Handler) GetFinancialYear(w http.ResponseWriter, r *http.Request) {
	fy, err := h.svc.GetFinancialYear(r.Context(), yearID(r))
	if err != nil {
		writeServiceError(w, "Failed to get financial year", err)
		return
	}
	writeJSON(w, http.StatusOK, toFinancialYearDTO(fy))
}

func (h *Handler) UpdateFinancialYear(w http.ResponseWriter, r *http.Request) {
	var req UpdateFinancialYearRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := req.toPatch()
	if err != nil {
		writeServiceError(w, "Invalid financial year", err)
		return
	}
	fy, err := h.svc.UpdateFinancialYear(r.Context(), yearID(r), p)
	if err != nil {
		writeServiceError(w, "Failed to update financial year", err)
		return
	}
	writeJSON(w, http.StatusOK, toFinancialYearDTO(fy))
}

func (h *Handler) DeleteFinancialYear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFinancialYear(r.Context(), yearID(r)); err != nil {
		writeServiceError(w, "Failed to delete financial year", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) CalculateDistributions(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	opts := profit.CalculateOptions{ForceFullPeriod: req.ForceFullPeriod || queryBool(r.URL.Query().Get("forceFullPeriod"))}
	res, err := h.svc.CalculateDistributions(r.Context(), yearID(r), opts, actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to calculate distributions", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationResultDTO(res))
}

func (h *Handler) GetDistributions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetDistributions(r.Context(), yearID(r))
	if err != nil {
		writeServiceError(w, "Failed to get distributions", err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributionListDTO(list))
}

func (h *Handler) GetYearSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context(), yearID(r))
	if err != nil {
		writeServiceError(w, "Failed to get summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toYearSummaryDTO(s))
}

// GetDistributionReport renders the year's PDF report and streams it back.
func (h *Handler) GetDistributionReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "Reports are not configured", nil)
		return
	}
	list, err := h.svc.GetDistributions(r.Context(), yearID(r))
	if err != nil {
		writeServiceError(w, "Failed to get distributions", err)
		return
	}
	investors, err := h.svc.ListInvestors(r.Context(), profit.InvestorFilter{IncludeInactive: true})
	if err != nil {
		writeServiceError(w, "Failed to list investors", err)
		return
	}
	byID := make(map[profit.InvestorID]profit.Investor, len(investors))
	for _, inv := range investors {
		byID[inv.ID] = inv
	}

	path, err := h.reports.RenderDistributionReport(list, byID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render report", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

func (h *Handler) ApproveDistributions(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ApproveDistributions(r.Context(), yearID(r), actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to approve distributions", err)
		return
	}
	writeJSON(w, http.StatusOK, ApprovalResultDTO{
		ApprovedCount: res.ApprovedCount,
		FinancialYear: toFinancialYearDTO(res.Year),
	})
}

func (h *Handler) RolloverProfits(w http.ResponseWriter, r *http.Request) {
	var req PercentageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	res, err := h.svc.RolloverProfits(r.Context(), yearID(r), req.percentageOr100(), actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to roll over profits", err)
		return
	}
	writeJSON(w, http.StatusOK, toRolloverBatchDTO(res))
}

func (h *Handler) DistributeProfits(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DistributeProfits(r.Context(), yearID(r), actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to distribute profits", err)
		return
	}
	writeJSON(w, http.StatusOK, DistributeResultDTO{
		DistributedCount: res.DistributedCount,
		FinancialYear:    toFinancialYearDTO(res.Year),
	})
}

func (h *Handler) CloseFinancialYear(w http.ResponseWriter, r *http.Request) {
	fy, err := h.svc.CloseFinancialYear(r.Context(), yearID(r), actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to close financial year", err)
		return
	}
	writeJSON(w, http.StatusOK, toFinancialYearDTO(fy))
}

func (h *Handler) SetAutoRollover(w http.ResponseWriter, r *http.Request) {
	var req AutoRolloverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, "Invalid auto rollover settings", err)
		return
	}
	fy, err := h.svc.SetAutoRollover(r.Context(), yearID(r), in)
	if err != nil {
		writeServiceError(w, "Failed to update auto rollover", err)
		return
	}
	writeJSON(w, http.StatusOK, toFinancialYearDTO(fy))
}

func (h *Handler) ExecuteAutoRollover(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.ExecuteAutoRollover(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to execute auto rollover", err)
		return
	}
	writeJSON(w, http.StatusOK, toAutoRolloverReportDTO(rep))
}

func (h *Handler) RolloverDistribution(w http.ResponseWriter, r *http.Request) {
	var req PercentageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	id := profit.DistributionID(chi.URLParam(r, "id"))
	out, err := h.svc.RolloverDistribution(r.Context(), id, req.percentageOr100(), actorFrom(r))
	if err != nil {
		writeServiceError(w, "Failed to roll over distribution", err)
		return
	}
	writeJSON(w, http.StatusOK, toRolloverOutcomeDTO(out))
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		writeError(w, http.StatusServiceUnavailable, "Notifications are not configured", nil)
		return
	}
	q := r.URL.Query()
	list, err := h.notes.List(r.Context(), q.Get("recipient"), queryBool(q.Get("unread")))
	if err != nil {
		writeServiceError(w, "Failed to list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTOs(list))
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if h.notes == nil {
		writeError(w, http.StatusServiceUnavailable, "Notifications are not configured", nil)
		return
	}
	if err := h.notes.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "Failed to mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// =============================================================================
// FX HANDLERS
// =============================================================================

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	if h.fx == nil {
		writeError(w, http.StatusServiceUnavailable, "FX is not configured", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRateDTO(h.fx.LatestRate(r.Context())))
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	if h.fx == nil {
		writeError(w, http.StatusServiceUnavailable, "FX is not configured", nil)
		return
	}
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		writeServiceError(w, "Invalid amount", generic.NewValidationError("amount", "must be a number"))
		return
	}
	from, err := generic.ParseCurrency(q.Get("from"))
	if err != nil {
		writeServiceError(w, "Invalid currency", err)
		return
	}
	to, err := generic.ParseCurrency(q.Get("to"))
	if err != nil {
		writeServiceError(w, "Invalid currency", err)
		return
	}
	conv, err := h.fx.Convert(r.Context(), amount, from, to)
	if err != nil {
		writeServiceError(w, "Failed to convert", err)
		return
	}
	writeJSON(w, http.StatusOK, toConversionDTO(conv))
}

// =============================================================================
// ADMIN JOB HANDLERS
// =============================================================================

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeJSON(w, http.StatusOK, []JobStatusDTO{})
		return
	}
	writeJSON(w, http.StatusOK, toJobStatusDTOs(h.scheduler.Jobs()))
}

// JobAction runs, starts or stops a named job.
func (h *Handler) JobAction(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Scheduler is not configured", nil)
		return
	}
	name, action := chi.URLParam(r, "name"), chi.URLParam(r, "action")

	var err error
	switch action {
	case "run":
		err = h.scheduler.RunNow(r.Context(), name)
	case "start":
		err = h.scheduler.Start(name)
	case "stop":
		err = h.scheduler.Stop(name)
	default:
		writeError(w, http.StatusNotFound, "Unknown job action", nil)
		return
	}
	if err != nil {
		writeServiceError(w, "Job "+action+" failed", err)
		return
	}
	h.log.InfoContext(r.Context(), "job action",
		slog.String("job", name), slog.String("action", action), slog.String("actor", actorFrom(r).String()))
	writeJSON(w, http.StatusOK, map[string]string{"job": name, "status": action + " ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func investorID(r *http.Request) profit.InvestorID { return profit.InvestorID(chi.URLParam(r, "id")) }
func yearID(r *http.Request) profit.YearID         { return profit.YearID(chi.URLParam(r, "id")) }

// decodeJSON accepts an empty body for endpoints whose body is optional.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeServiceError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generic.ErrDuplicate):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsInvalidState(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func queryBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
