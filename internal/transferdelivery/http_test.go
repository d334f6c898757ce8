package transferdelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"

	"github.com/go-petr/pet-transfer/internal/accountdelivery"
	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/internal/middleware"
	"github.com/go-petr/pet-transfer/pkg/errorspkg"
	"github.com/go-petr/pet-transfer/pkg/moneypkg"
	"github.com/go-petr/pet-transfer/pkg/randompkg"
	"github.com/go-petr/pet-transfer/pkg/tokenpkg"
	"github.com/go-petr/pet-transfer/pkg/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("amount", moneypkg.ValidAmount); err != nil {
			panic(err)
		}

		if err := v.RegisterValidation("accountnumber", accountdelivery.ValidAccountNumber); err != nil {
			panic(err)
		}
	}

	os.Exit(m.Run())
}

func newTokenMaker(t *testing.T) tokenpkg.Maker {
	t.Helper()

	tokenSymmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(tokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", tokenSymmetricKey, err)
	}

	return tokenMaker
}

func TestCreate(t *testing.T) {
	username := randompkg.Owner()
	toNumber := randompkg.AccountNumber()
	recipient := randompkg.FullName()
	tokenMaker := newTokenMaker(t)

	authType := middleware.AuthTypeBearer
	duration := time.Minute

	record := domain.TransactionRecord{
		FromAccountNumber: randompkg.AccountNumber(),
		ToAccountNumber:   toNumber,
		FromAccountName:   randompkg.FullName(),
		ToAccountName:     recipient,
		Amount:            "30",
		TransactionDate:   "2024-03-01T12:30:00Z",
	}

	okBody := gin.H{
		"to_account_number": toNumber,
		"amount":            "30",
		"recipient_name":    recipient,
	}

	okArg := domain.TransferParams{
		ToAccountNumber: toNumber,
		Amount:          "30",
		RecipientName:   recipient,
	}

	testCases := []struct {
		name           string
		requestBody    gin.H
		idempotencyKey string
		setupAuth      func(t *testing.T, r *http.Request) error
		buildStubs     func(transferService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:        "OK",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Eq(username), gomock.Eq(okArg)).
					Times(1).
					Return(record, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "IdempotencyKey",
			requestBody:    okBody,
			idempotencyKey: "c0ffee",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				arg := okArg
				arg.IdempotencyKey = "c0ffee"

				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Eq(username), gomock.Eq(arg)).
					Times(1).
					Return(record, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "IdempotencyKeyTooLong",
			requestBody:    okBody,
			idempotencyKey: strings.Repeat("k", MaxIdempotencyKeyLen+1),
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      ErrIdempotencyKeyTooLong.Error(),
		},
		{
			name:        "NoAuthorization",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return nil
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name: "MissingRecipientName",
			requestBody: gin.H{
				"to_account_number": toNumber,
				"amount":            "30",
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "RecipientName field is required",
		},
		{
			name: "NegativeAmount",
			requestBody: gin.H{
				"to_account_number": toNumber,
				"amount":            "-30",
				"recipient_name":    recipient,
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive decimal",
		},
		{
			name: "InvalidAccountNumber",
			requestBody: gin.H{
				"to_account_number": "12 34",
				"amount":            "30",
				"recipient_name":    recipient,
			},
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().Transfer(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ToAccountNumber must be an account number",
		},
		{
			name:        "TooPrecise",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionRecord{}, domain.ErrAmountPrecision)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrAmountPrecision.Error(),
		},
		{
			name:        "SenderNotFound",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionRecord{}, domain.ErrSenderNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrSenderNotFound.Error(),
		},
		{
			name:        "DestinationNotFound",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionRecord{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
		{
			name:        "RecipientMismatch",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionRecord{}, domain.ErrRecipientMismatch)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrRecipientMismatch.Error(),
		},
		{
			name:        "InsufficientFunds",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionRecord{}, domain.ErrInsufficientFunds)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrInsufficientFunds.Error(),
		},
		{
			name:        "ConcurrencyConflict",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionRecord{}, domain.ErrConcurrencyConflict)
			},
			wantStatusCode: http.StatusConflict,
			wantError:      domain.ErrConcurrencyConflict.Error(),
		},
		{
			name:        "Timeout",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionRecord{}, domain.ErrTransferTimeout)
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantError:      domain.ErrTransferTimeout.Error(),
		},
		{
			name:        "InternalError",
			requestBody: okBody,
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, authType, username, duration)
			},
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					Transfer(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionRecord{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Initialize mocks
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			transferService := NewMockService(ctrl)
			transferHandler := NewHandler(transferService)

			url := "/transactions/transfer"
			server := gin.New()
			server.Use(middleware.AuthMiddleware(tokenMaker))
			server.POST(url, transferHandler.Create)

			tc.buildStubs(transferService)

			// Send request
			body, err := json.Marshal(tc.requestBody)
			if err != nil {
				t.Fatalf("Encoding request body error: %v", err)
			}

			req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if tc.idempotencyKey != "" {
				req.Header.Set(IdempotencyKeyHeader, tc.idempotencyKey)
			}

			if err = tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, %+v) returned error: %v", req, err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			// Test response
			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			got := &struct {
				Transaction domain.TransactionRecord `json:"transaction"`
			}{}
			res := web.Response{Data: got}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}
				return
			}

			if diff := cmp.Diff(record, got.Transaction); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	username := randompkg.Owner()
	tokenMaker := newTokenMaker(t)

	authType := middleware.AuthTypeBearer
	duration := time.Minute

	records := []domain.TransactionRecord{
		{
			FromAccountNumber: randompkg.AccountNumber(),
			ToAccountNumber:   randompkg.AccountNumber(),
			FromAccountName:   randompkg.FullName(),
			ToAccountName:     randompkg.FullName(),
			Amount:            "30",
			TransactionDate:   "2024-03-01T12:30:00Z",
		},
	}

	testCases := []struct {
		name           string
		accountID      string
		buildStubs     func(transferService *MockService)
		wantStatusCode int
		wantError      string
		want           []domain.TransactionRecord
	}{
		{
			name:      "OK",
			accountID: "7",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					HistoryFor(gomock.Any(), gomock.Eq(username), gomock.Eq(int64(7))).
					Times(1).
					Return(records, nil)
			},
			wantStatusCode: http.StatusOK,
			want:           records,
		},
		{
			name:      "Empty",
			accountID: "7",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					HistoryFor(gomock.Any(), gomock.Eq(username), gomock.Eq(int64(7))).
					Times(1).
					Return([]domain.TransactionRecord{}, nil)
			},
			wantStatusCode: http.StatusOK,
			want:           []domain.TransactionRecord{},
		},
		{
			name:      "InvalidID",
			accountID: "0",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().HistoryFor(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "ID field is required",
		},
		{
			name:      "AccountNotFound",
			accountID: "7",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					HistoryFor(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
		{
			name:      "NotOwner",
			accountID: "7",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					HistoryFor(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, domain.ErrAccountOwnerMismatch)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      domain.ErrAccountOwnerMismatch.Error(),
		},
		{
			name:      "StoreUnavailable",
			accountID: "7",
			buildStubs: func(transferService *MockService) {
				transferService.EXPECT().
					HistoryFor(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, domain.ErrStoreUnavailable)
			},
			wantStatusCode: http.StatusServiceUnavailable,
			wantError:      domain.ErrStoreUnavailable.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			transferService := NewMockService(ctrl)
			transferHandler := NewHandler(transferService)

			server := gin.New()
			server.Use(middleware.AuthMiddleware(tokenMaker))
			server.GET("/transactions/history/:id", transferHandler.History)

			tc.buildStubs(transferService)

			req, err := http.NewRequest(http.MethodGet, "/transactions/history/"+tc.accountID, nil)
			if err != nil {
				t.Fatalf("Creating request error: %v", err)
			}

			if err = middleware.AddAuthorization(req, tokenMaker, authType, username, duration); err != nil {
				t.Fatalf("middleware.AddAuthorization() returned error: %v", err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			got := &struct {
				Transactions []domain.TransactionRecord `json:"transactions"`
			}{}
			res := web.Response{Data: got}

			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Errorf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}
				return
			}

			if diff := cmp.Diff(tc.want, got.Transactions); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{err: domain.ErrInvalidAmount, want: http.StatusBadRequest},
		{err: domain.ErrNegativeAmount, want: http.StatusBadRequest},
		{err: domain.ErrRecipientMismatch, want: http.StatusBadRequest},
		{err: domain.ErrInsufficientFunds, want: http.StatusBadRequest},
		{err: domain.ErrSenderNotFound, want: http.StatusNotFound},
		{err: domain.ErrTransactionNotFound, want: http.StatusNotFound},
		{err: domain.ErrAccountOwnerMismatch, want: http.StatusUnauthorized},
		{err: domain.ErrConcurrencyConflict, want: http.StatusConflict},
		{err: domain.ErrIdempotencyKeyReused, want: http.StatusUnprocessableEntity},
		{err: domain.ErrStoreUnavailable, want: http.StatusServiceUnavailable},
		{err: errorspkg.ErrInternal, want: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		if got := ErrorStatus(tc.err); got != tc.want {
			t.Errorf("ErrorStatus(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
