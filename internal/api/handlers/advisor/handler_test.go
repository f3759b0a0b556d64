package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	advisorService "dairy-advisor/internal/core/advisor"
	"dairy-advisor/internal/core/dataset"
	"dairy-advisor/internal/core/series"
	"dairy-advisor/internal/infrastructure/storage"
	"dairy-advisor/internal/pkg/common"
)

type memorySource map[string]*series.CleanedSeries

func (m memorySource) Series(ctx context.Context, id string) (*series.CleanedSeries, error) {
	s, ok := m[id]
	if !ok {
		return nil, &common.SourceUnreadableError{Path: "/data/" + id + ".csv"}
	}
	return s, nil
}

func obs(year, month int, region, measure string, v float64) series.Observation {
	return series.Observation{
		Key:     series.Key{Year: year, Month: month, Region: region},
		Measure: measure,
		Value:   series.Known(v),
	}
}

func testSource() memorySource {
	var volume, price []series.Observation
	for m := 1; m <= 12; m++ {
		volume = append(volume,
			obs(2024, m, "ANTIOQUIA", dataset.MeasureVolume, 100+float64(m)),
			obs(2024, m, "BOYACA", dataset.MeasureVolume, 50+float64(m)),
		)
		price = append(price, obs(2024, m, "ANTIOQUIA", dataset.MeasurePrice, 1000+float64(m)))
	}
	census := []series.Observation{
		obs(2025, 1, "ANTIOQUIA", dataset.MeasureTotalBovines, 3000),
		obs(2025, 1, "BOYACA", dataset.MeasureTotalBovines, 2000),
	}
	return memorySource{
		dataset.DatasetVolume: series.New(dataset.DatasetVolume, "v1", volume, 0),
		dataset.DatasetPrice:  series.New(dataset.DatasetPrice, "v1", price, 0),
		dataset.DatasetCensus: series.New(dataset.DatasetCensus, "v1", census, 0),
	}
}

// memoryQueries 記憶體中的查詢儲存
type memoryQueries struct {
	mu   sync.Mutex
	data map[string]storage.SavedQuery
}

func (m *memoryQueries) Save(ctx context.Context, q storage.SavedQuery) (*storage.SavedQuery, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = common.GenerateUUID()
	q.CreatedAt = time.Now()
	m.data[q.ID] = q
	return &q, nil
}

func (m *memoryQueries) List(ctx context.Context, userID string) ([]storage.SavedQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.SavedQuery{}
	for _, q := range m.data {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryQueries) Get(ctx context.Context, id string) (*storage.SavedQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.data[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &q, nil
}

func (m *memoryQueries) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func newRouter(src advisorService.SeriesSource, queries QueryRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := advisorService.NewEngine(src, nil, nil, advisorService.DefaultOptions)
	r := gin.New()
	NewHandler(engine, queries, false).Register(r.Group("/api/v1"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRecommendEndpoint(t *testing.T) {
	r := newRouter(testSource(), nil)

	w := do(r, http.MethodPost, "/api/v1/recommendations", `{"breed":"holstein","herd_size":50}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rec advisorService.Recommendation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "Holstein", rec.Breed.Name)
	assert.Equal(t, 12, rec.BestMonth)
	assert.Equal(t, "ANTIOQUIA", rec.CandidateRegions[0].Region)
	assert.True(t, common.IsUUID(rec.ID))
	assert.NotEmpty(t, rec.Narrative)
}

func TestRecommendErrors(t *testing.T) {
	r := newRouter(testSource(), nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"breed":`, http.StatusBadRequest, common.ErrCodeInvalidRequest},
		{"zero herd", `{"breed":"Holstein","herd_size":0}`, http.StatusBadRequest, common.ErrCodeInvalidInput},
		{"unknown breed", `{"breed":"Angus","herd_size":10}`, http.StatusNotFound, common.ErrCodeUnknownBreed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/recommendations", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestUnreadableSourceHidesPath(t *testing.T) {
	src := testSource()
	delete(src, dataset.DatasetPrice)
	r := newRouter(src, nil)

	w := do(r, http.MethodPost, "/api/v1/recommendations", `{"breed":"Holstein","herd_size":10}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, common.ErrCodeSourceUnreadable, resp.Code)
	assert.NotContains(t, w.Body.String(), "/data/")
}

func TestForecastEndpoint(t *testing.T) {
	r := newRouter(testSource(), nil)

	w := do(r, http.MethodGet, "/api/v1/forecast/price?region=antioquia&horizon=2", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"year":2025`)

	w = do(r, http.MethodGet, "/api/v1/forecast/price?horizon=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/forecast/rainfall", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/forecast/price?region=antioquia&horizon=999999999", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, common.ErrCodeInvalidInput, resp.Code)
	assert.Contains(t, resp.Message, "horizon")
}

func TestRankingEndpoints(t *testing.T) {
	r := newRouter(testSource(), nil)

	w := do(r, http.MethodGet, "/api/v1/regions/top?year=2024&top=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var regions struct {
		Regions []struct {
			Key string `json:"key"`
		} `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &regions))
	require.Len(t, regions.Regions, 1)
	assert.Equal(t, "ANTIOQUIA", regions.Regions[0].Key)

	w = do(r, http.MethodGet, "/api/v1/months/best?dataset=price&region=ANTIOQUIA&top=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var months struct {
		Months []struct {
			Month int `json:"month"`
		} `json:"months"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &months))
	require.Len(t, months.Months, 2)
	assert.Equal(t, 12, months.Months[0].Month)
	assert.Equal(t, 11, months.Months[1].Month)

	w = do(r, http.MethodGet, "/api/v1/census/overview?top=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ANTIOQUIA")
}

func TestBreedEndpoints(t *testing.T) {
	r := newRouter(testSource(), nil)

	w := do(r, http.MethodGet, "/api/v1/breeds", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gyr")

	w = do(r, http.MethodGet, "/api/v1/breeds/jersey", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Jersey")

	w = do(r, http.MethodGet, "/api/v1/breeds/angus", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryEndpoints(t *testing.T) {
	r := newRouter(testSource(), &memoryQueries{data: map[string]storage.SavedQuery{}})

	w := do(r, http.MethodPost, "/api/v1/queries",
		`{"user_id":"u-1","title":"Holstein 50","request":{"breed":"Holstein","herd_size":50}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved storage.SavedQuery
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ID)

	w = do(r, http.MethodGet, "/api/v1/queries?user_id=u-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), saved.ID)

	w = do(r, http.MethodGet, "/api/v1/queries/"+saved.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Holstein 50")

	w = do(r, http.MethodDelete, "/api/v1/queries/"+saved.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/queries/"+saved.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/v1/queries", `{"user_id":"u-1","title":"","request":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryEndpointsDisabled(t *testing.T) {
	r := newRouter(testSource(), nil)

	w := do(r, http.MethodGet, "/api/v1/queries?user_id=u-1", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "STORE_DISABLED"))
}
