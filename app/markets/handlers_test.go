package markets

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/models"
)

func newTestRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc, nil)
	r.GET("/markets", h.ListMarkets)
	r.GET("/markets/:id", h.GetMarket)
	r.GET("/markets/:id/prices", h.GetPrices)
	r.POST("/markets", h.CreateMarket)
	r.POST("/markets/:id/close", h.CloseMarket)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) api.Response {
	t.Helper()
	var resp api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetPricesHandler(t *testing.T) {
	svc := new(MockService)
	id := uuid.New()
	svc.On("GetPriceVector", mock.Anything, id).
		Return(models.PriceVector{"a": 0.731, "b": 0.269, "c": 0.269}, nil)

	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/markets/"+id.String()+"/prices", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, 0.731, data["prices"].(map[string]interface{})["a"])
	normalized := data["normalized"].(map[string]interface{})
	assert.InDelta(t, 0.731/1.269, normalized["a"], 1e-9)
	svc.AssertExpectations(t)
}

func TestGetMarketHandler(t *testing.T) {
	svc := new(MockService)
	missing := uuid.New()
	svc.On("GetMarket", mock.Anything, missing).Return(nil, models.ErrRecordNotFound)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "bad id", path: "/markets/not-a-uuid", wantStatus: http.StatusBadRequest},
		{name: "not found", path: "/markets/" + missing.String(), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCreateMarketHandler(t *testing.T) {
	end := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	tests := []struct {
		name       string
		body       map[string]interface{}
		setup      func(svc *MockService)
		wantStatus int
	}{
		{
			name: "created",
			body: map[string]interface{}{
				"title":    "<b>Will it rain?</b>",
				"type":     "binary",
				"options":  []string{"yes", "no"},
				"end_date": end,
			},
			setup: func(svc *MockService) {
				svc.On("CreateMarket", mock.Anything, mock.MatchedBy(func(r *CreateMarketRequest) bool {
					return r.Title == "Will it rain?"
				})).Return(&models.Market{ID: uuid.New(), Title: "Will it rain?"}, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "duplicate options",
			body: map[string]interface{}{
				"title":    "Dupes",
				"type":     "multiple",
				"options":  []string{"a", "a", "b"},
				"end_date": end,
			},
			setup:      func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed",
			body:       map[string]interface{}{"title": "x"},
			setup:      func(_ *MockService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "service rejects end date",
			body: map[string]interface{}{
				"title":    "Too soon",
				"type":     "binary",
				"options":  []string{"yes", "no"},
				"end_date": end,
			},
			setup: func(svc *MockService) {
				svc.On("CreateMarket", mock.Anything, mock.Anything).Return(nil, models.ErrInvalidEndDate)
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setup(svc)

			body, err := json.Marshal(tt.body)
			require.NoError(t, err)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/markets", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			newTestRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestCloseMarketHandlerConflict(t *testing.T) {
	svc := new(MockService)
	id := uuid.New()
	svc.On("CloseMarket", mock.Anything, id).Return(nil, models.ErrMarketNotOpen)

	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/markets/"+id.String()+"/close", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "state_conflict", decode(t, w).Error.Kind)
}

func TestListMarketsHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("ListMarkets", mock.Anything, mock.AnythingOfType("*markets.MarketFilters")).
		Return([]models.Market{{Title: "one"}}, int64(41), nil)

	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/markets?page=2&per_page=20", nil))
	require.Equal(t, http.StatusOK, w.Code)
	meta := decode(t, w).Meta.(map[string]interface{})
	assert.Equal(t, float64(3), meta["total_pages"])

	w = httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/markets?sort_by=password", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
