package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/usecase"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/service"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/marketdata"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/registry"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

func newTestHandler(t *testing.T, source *marketdata.StaticSource) *AssessmentHandler {
	t.Helper()

	reg, err := registry.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	similarity, err := service.NewSimilarityEngine()
	if err != nil {
		t.Fatalf("NewSimilarityEngine() error = %v", err)
	}

	log := logger.New("error")
	runner := usecase.NewRunAssessmentUseCase(
		reg,
		source,
		service.NewNormalizer(),
		service.NewCategoryAggregator(valueobject.DefaultBands()),
		similarity,
		service.NewAlertGenerator(),
		nil, nil, nil, nil, nil, nil, nil,
		usecase.RunAssessmentConfig{},
		log,
	)
	getUC := usecase.NewGetAssessmentUseCase(runner, nil, log)
	return NewAssessmentHandler(getUC, log)
}

func TestGetAssessment_OK(t *testing.T) {
	h := newTestHandler(t, marketdata.NewStaticSource())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk-assessment", nil)
	rec := httptest.NewRecorder()
	h.GetAssessment(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %s, want application/json", ct)
	}

	var body struct {
		Success           bool `json:"success"`
		NotificationsSent bool `json:"notifications_sent"`
		Data              struct {
			OverallScore float64 `json:"overall_score"`
			OverallLevel string  `json:"overall_level"`
			Categories   []struct {
				Category string `json:"category"`
			} `json:"categories"`
			Indicators []json.RawMessage `json:"indicators"`
			Similarity []json.RawMessage `json:"similarity"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !body.Success {
		t.Fatal("success = false, want true")
	}
	if body.Data.OverallScore < 0 || body.Data.OverallScore > 100 {
		t.Fatalf("overall_score = %v, out of [0,100]", body.Data.OverallScore)
	}
	if len(body.Data.Categories) != len(valueobject.AllCategories()) {
		t.Fatalf("categories = %d, want %d", len(body.Data.Categories), len(valueobject.AllCategories()))
	}
	if len(body.Data.Indicators) == 0 {
		t.Fatal("indicators missing in response")
	}
	if len(body.Data.Similarity) == 0 {
		t.Fatal("similarity matches missing in response")
	}
}

func TestGetAssessment_NoDataIs503(t *testing.T) {
	// Пустой snapshot: ни одна серия не отдает значение
	h := newTestHandler(t, marketdata.NewStaticSourceWithValues(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk-assessment", nil)
	rec := httptest.NewRecorder()
	h.GetAssessment(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Fatalf("body = %+v, want success=false with error message", body)
	}
}

func TestGetAssessment_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, marketdata.NewStaticSource())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk-assessment", nil)
	rec := httptest.NewRecorder()
	h.GetAssessment(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
