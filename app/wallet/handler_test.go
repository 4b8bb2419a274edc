package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/app/ledger"
	"github.com/joefazee/marketcore/models"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*OperationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OperationResponse), args.Error(1)
}

func (m *mockService) GetAccount(ctx context.Context, userID uuid.UUID) (*AccountView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AccountView), args.Error(1)
}

func (m *mockService) GetLedger(ctx context.Context, userID uuid.UUID, filters *ledger.EntryFilters) ([]models.LedgerEntry, int64, error) {
	args := m.Called(ctx, userID, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

func (m *mockService) AdjustBalance(ctx context.Context, userID uuid.UUID, req *AdjustBalanceRequest) (*OperationResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OperationResponse), args.Error(1)
}

func (m *mockService) Audit(ctx context.Context, userID uuid.UUID) (*ledger.AuditReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AuditReport), args.Error(1)
}

func (m *mockService) AuditAll(ctx context.Context) ([]*ledger.AuditReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.AuditReport), args.Error(1)
}

func newRouter(svc Service, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(api.ContextUserIDKey, userID)
		}
		c.Next()
	})
	h := NewHandler(svc, nil)
	r.GET("/wallet", h.GetMyAccount)
	r.GET("/wallet/ledger", h.GetMyLedger)
	r.GET("/wallet/audit", h.AuditMyAccount)
	r.POST("/accounts", h.OpenAccount)
	r.POST("/accounts/:id/adjust", h.AdjustBalance)
	r.GET("/accounts/:id/audit", h.AuditAccount)
	return r
}

func send(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetMyAccountHandler(t *testing.T) {
	userID := uuid.New()
	svc := new(mockService)
	svc.On("GetAccount", mock.Anything, userID).
		Return(&AccountView{ID: userID, Username: "alice", Balance: decimal.NewFromInt(900)}, nil)

	w := send(newRouter(svc, userID), http.MethodGet, "/wallet", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Data.(map[string]interface{})["username"])

	w = send(newRouter(svc, uuid.Nil), http.MethodGet, "/wallet", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertExpectations(t)
}

func TestGetMyLedgerHandler(t *testing.T) {
	userID := uuid.New()
	svc := new(mockService)
	svc.On("GetLedger", mock.Anything, userID, mock.MatchedBy(func(f *ledger.EntryFilters) bool {
		return f.Reason == models.LedgerReasonWin
	})).Return([]models.LedgerEntry{{Sequence: 3}}, int64(1), nil)
	r := newRouter(svc, userID)

	w := send(r, http.MethodGet, "/wallet/ledger?reason=win", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodGet, "/wallet/ledger?reason=lottery", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodGet, "/wallet/ledger?market_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestOpenAccountHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		setup      func(*mockService)
		wantStatus int
	}{
		{
			name: "opened",
			body: map[string]interface{}{"username": "alice", "grant": 1000},
			setup: func(m *mockService) {
				m.On("OpenAccount", mock.Anything, &OpenAccountRequest{Username: "alice", Grant: 1000}).
					Return(&OperationResponse{Account: &AccountView{Username: "alice"}}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "bad username",
			body:       map[string]interface{}{"username": "a b", "grant": 1},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative grant",
			body:       map[string]interface{}{"username": "alice", "grant": -1},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "taken",
			body: map[string]interface{}{"username": "alice"},
			setup: func(m *mockService) {
				m.On("OpenAccount", mock.Anything, mock.Anything).Return(nil, models.ErrUsernameTaken)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			w := send(newRouter(svc, uuid.New()), http.MethodPost, "/accounts", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestAdjustBalanceHandler(t *testing.T) {
	userID := uuid.New()
	svc := new(mockService)
	svc.On("AdjustBalance", mock.Anything, userID, mock.Anything).Return(nil, models.ErrInsufficientBalance)
	r := newRouter(svc, uuid.New())

	w := send(r, http.MethodPost, "/accounts/"+userID.String()+"/adjust", map[string]string{"amount": "-50", "note": "fix"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = send(r, http.MethodPost, "/accounts/"+userID.String()+"/adjust", map[string]string{"amount": "1.005", "note": "fix"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/accounts/nope/adjust", map[string]string{"amount": "1", "note": "fix"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestAuditHandlers(t *testing.T) {
	userID := uuid.New()
	svc := new(mockService)
	svc.On("Audit", mock.Anything, userID).Return(&ledger.AuditReport{UserID: userID, Consistent: true}, nil)

	w := send(newRouter(svc, userID), http.MethodGet, "/wallet/audit", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(newRouter(svc, uuid.New()), http.MethodGet, "/accounts/"+userID.String()+"/audit", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertNumberOfCalls(t, "Audit", 2)
}
