// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

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

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	ResolveSender(ctx context.Context, principal string) (domain.Account, error)
	ResolveByNumber(ctx context.Context, number string) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) Handler {
	return Handler{service: as}
}

type data struct {
	Account domain.Account `json:"account"`
}
type response struct {
	Data data `json:"data,omitempty"`
}

// ErrorStatus returns the HTTP status code for errors of the account resolver.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
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

// Me handles http request to get the account of the authenticated customer.
func (h *Handler) Me(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	acc, err := h.service.ResolveSender(ctx, middleware.Principal(gctx))
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{acc}})
}

type getByNumberRequest struct {
	Number string `uri:"number" binding:"required,accountnumber"`
}

type publicData struct {
	Account domain.PublicAccount `json:"account"`
}
type publicResponse struct {
	Data publicData `json:"data,omitempty"`
}

// GetByNumber handles http request to look up the owner name of an account number.
//
// Only the public view is returned so customers can confirm a recipient before
// transferring.
func (h *Handler) GetByNumber(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getByNumberRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		var (
			ve     validator.ValidationErrors
			errMsg string
		)

		if errors.As(err, &ve) {
			errMsg = web.GetErrorMsg(ve)
		}

		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: errMsg})

		return
	}

	acc, err := h.service.ResolveByNumber(ctx, req.Number)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, publicResponse{Data: publicData{acc.Public()}})
}
