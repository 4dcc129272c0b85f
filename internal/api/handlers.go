package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/venibank/ledgerd/internal/domain"
	"github.com/venibank/ledgerd/internal/ledger"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	transactionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transaction_outcomes_total",
		Help: "Transaction applications by outcome",
	}, []string{"outcome"})
)

// Ledger is the slice of the transaction processor the handlers consume.
type Ledger interface {
	ApplyTransaction(ctx context.Context, idempotencyKey, accountID, amount, direction string) (*ledger.Result, error)
	CreateAccount(ctx context.Context, accountID string, initialBalance decimal.Decimal) error
	GetBalance(ctx context.Context, accountID string) (*domain.Account, error)
}

type Handler struct {
	ledger Ledger
	log    *zap.Logger
}

func NewHandler(l Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: l, log: logger}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

func (h *Handler) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, domain.KindInvalidInput,
			"malformed JSON body", "POST", "/accounts")
		return
	}

	initial := decimal.Zero
	if req.InitialBalance != "" {
		parsed, err := decimal.NewFromString(req.InitialBalance)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, domain.KindInvalidInput,
				"initial_balance is not a decimal number", "POST", "/accounts")
			return
		}
		initial = parsed
	}

	if err := h.ledger.CreateAccount(r.Context(), req.AccountID, initial); err != nil {
		h.respondKindError(w, err, "POST", "/accounts")
		return
	}

	// Creation is insert-if-absent, so read back the balance the account
	// actually has rather than echoing the request.
	acct, err := h.ledger.GetBalance(r.Context(), req.AccountID)
	if err != nil {
		h.respondKindError(w, err, "POST", "/accounts")
		return
	}
	respondWithJSON(w, http.StatusCreated,
		AccountResponse{AccountID: acct.ID, Balance: acct.Balance}, "POST", "/accounts")
}

func (h *Handler) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	acct, err := h.ledger.GetBalance(r.Context(), accountID)
	if err != nil {
		h.respondKindError(w, err, "GET", "/accounts/{id}/balance")
		return
	}
	respondWithJSON(w, http.StatusOK,
		AccountResponse{AccountID: acct.ID, Balance: acct.Balance}, "GET", "/accounts/{id}/balance")
}

func (h *Handler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/transactions"))
	defer timer.ObserveDuration()

	// 1. The idempotency key is the one transport-level requirement.
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		respondWithError(w, http.StatusBadRequest, domain.KindInvalidInput,
			"missing Idempotency-Key header", "POST", "/transactions")
		return
	}

	// 2. Decode. Shape only; the processor owns semantic validation.
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, domain.KindInvalidInput,
			"malformed JSON body", "POST", "/transactions")
		return
	}

	// 3. Apply.
	res, err := h.ledger.ApplyTransaction(r.Context(), idempotencyKey, req.AccountID, req.Amount, req.Direction)
	if err != nil {
		transactionOutcomes.WithLabelValues(domain.KindOf(err).String()).Inc()
		h.respondKindError(w, err, "POST", "/transactions")
		return
	}

	// 4. 201 for a fresh commit, 200 for a replayed outcome.
	status := http.StatusCreated
	outcome := "committed"
	if res.Replayed {
		status = http.StatusOK
		outcome = "replayed"
	}
	transactionOutcomes.WithLabelValues(outcome).Inc()
	respondWithJSON(w, status, TransactionResponse{
		TransactionID: res.TransactionID,
		AccountID:     req.AccountID,
		Balance:       res.NewBalance,
		Replayed:      res.Replayed,
	}, "POST", "/transactions")
}

// respondKindError translates the error taxonomy onto status codes: 400
// invalid input, 404 unknown account, 409 for both insufficient balance and
// concurrency conflicts (the request lost against the account's current
// state), 500 for storage trouble and anything unclassified.
func (h *Handler) respondKindError(w http.ResponseWriter, err error, method, endpoint string) {
	kind := domain.KindOf(err)
	status := statusFromKind(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		// Internals stay out of 5xx bodies.
		respondWithError(w, status, kind, "internal server error", method, endpoint)
		return
	}
	respondWithError(w, status, kind, err.Error(), method, endpoint)
}

func statusFromKind(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindAccountNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientBalance, domain.KindConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondWithError(w http.ResponseWriter, code int, kind domain.Kind, message, method, endpoint string) {
	respondWithJSON(w, code, ErrorResponse{Error: message, Code: kind.String()}, method, endpoint)
}
