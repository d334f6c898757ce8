// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/internal/middleware"
	"github.com/go-petr/pet-transfer/pkg/errorspkg"
	"github.com/go-petr/pet-transfer/pkg/web"
)

// IdempotencyKeyHeader carries the optional client supplied key that makes a transfer safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// MaxIdempotencyKeyLen is the longest accepted idempotency key.
const MaxIdempotencyKeyLen = 128

// ErrIdempotencyKeyTooLong indicates an idempotency key over MaxIdempotencyKeyLen bytes.
var ErrIdempotencyKeyTooLong = errors.New("idempotency key is too long")

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, principal string, arg domain.TransferParams) (domain.TransactionRecord, error)
	HistoryFor(ctx context.Context, principal string, accountID int64) ([]domain.TransactionRecord, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

// ErrorStatus returns the HTTP status code for an error of the transfer engine or the history reader.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrRecipientMismatch),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountOwnerMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func writeError(gctx *gin.Context, err error) {
	status := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		err = errorspkg.ErrInternal
	}

	gctx.JSON(status, web.Error(err))
}

func bindError(gctx *gin.Context, err error) {
	var (
		ve     validator.ValidationErrors
		errMsg string
	)

	if errors.As(err, &ve) {
		errMsg = web.GetErrorMsg(ve)
	} else {
		errMsg = err.Error()
	}

	zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
	gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})
}

type createRequest struct {
	ToAccountNumber string `json:"to_account_number" binding:"required,accountnumber"`
	Amount          string `json:"amount" binding:"required,amount"`
	RecipientName   string `json:"recipient_name" binding:"required"`
}

type data struct {
	Transaction domain.TransactionRecord `json:"transaction"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Create handles http request to transfer money from the customer's account to another account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		bindError(gctx, err)
		return
	}

	key := gctx.GetHeader(IdempotencyKeyHeader)
	if len(key) > MaxIdempotencyKeyLen {
		gctx.JSON(http.StatusBadRequest, web.Error(ErrIdempotencyKeyTooLong))
		return
	}

	arg := domain.TransferParams{
		ToAccountNumber: req.ToAccountNumber,
		Amount:          req.Amount,
		RecipientName:   req.RecipientName,
		IdempotencyKey:  key,
	}

	record, err := h.service.Transfer(ctx, middleware.Principal(gctx), arg)
	if err != nil {
		l.Info().Err(err).Send()
		writeError(gctx, err)

		return
	}

	res := response{
		Data: data{record},
	}

	gctx.JSON(http.StatusOK, res)
}

type historyRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type historyData struct {
	Transactions []domain.TransactionRecord `json:"transactions"`
}

type historyResponse struct {
	Data historyData `json:"data"`
}

// History handles http request to list the transactions of the customer's account.
func (h *Handler) History(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req historyRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		bindError(gctx, err)
		return
	}

	records, err := h.service.HistoryFor(ctx, middleware.Principal(gctx), req.ID)
	if err != nil {
		l.Info().Err(err).Send()
		writeError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, historyResponse{Data: historyData{records}})
}
