package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/headache-forecast/internal/headache"
	"github.com/i474232898/headache-forecast/internal/store"
	"github.com/i474232898/headache-forecast/internal/weather"
)

type fakeService struct {
	report     weather.Report
	reportErr  error
	history    []weather.Report
	historyErr error

	lastLoc weather.Location
}

func (f *fakeService) GetReport(ctx context.Context, loc weather.Location) (weather.Report, error) {
	f.lastLoc = loc
	if f.reportErr != nil {
		return weather.Report{}, f.reportErr
	}
	r := f.report
	r.Location = loc
	return r, nil
}

func (f *fakeService) GetHistory(loc weather.Location, from, to time.Time) ([]weather.Report, error) {
	return f.history, f.historyErr
}

type fakeSharer struct {
	chatID int64
	city   string
	err    error
}

func (f *fakeSharer) Share(ctx context.Context, chatID int64, report weather.Report) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.chatID = chatID
	f.city = report.Location.City
	return 99, nil
}

func sampleReport() weather.Report {
	return weather.Report{
		ID:        "r1",
		FetchedAt: time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC),
		Current:   weather.Reading{Condition: "小雨", PressureHpa: 995, TemperatureC: 18.2, HumidityPct: 90},
		Forecast: weather.DayForecast{
			Today: &weather.DailySummary{Date: "2025-06-10", RepresentativeCondition: "曇り", MaxTemperatureC: 21.7, MinTemperatureC: 14.8, AveragePressureHpa: 1008},
		},
		Risk: headache.Classify(995, "小雨"),
	}
}

func newTestApp(svc ReportService, sharer Sharer) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, svc, sharer)
	return app
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request, wantStatus int) map[string]any {
	t.Helper()

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("expected status %d, got %d: %s", wantStatus, resp.StatusCode, body)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode body %q: %v", body, err)
	}
	return out
}

func TestHeadacheReport(t *testing.T) {
	svc := &fakeService{report: sampleReport()}
	app := newTestApp(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/headache?city="+url.QueryEscape("札幌市"), nil)
	out := doJSON(t, app, req, http.StatusOK)

	if out["success"] != true || out["city"] != "札幌市" {
		t.Fatalf("unexpected body: %v", out)
	}
	if svc.lastLoc.City != "札幌市" {
		t.Fatalf("service called with %+v", svc.lastLoc)
	}

	current := out["currentWeather"].(map[string]any)
	if current["weatherMain"] != "小雨" || current["pressure"] != 995.0 {
		t.Fatalf("currentWeather = %v", current)
	}

	risk := out["headacheRisk"].(map[string]any)
	if risk["level"] != "高い" || risk["class"] != "risk-high" {
		t.Fatalf("headacheRisk = %v", risk)
	}

	forecast := out["forecast"].(map[string]any)
	if forecast["tomorrow"] != nil {
		t.Fatalf("tomorrow = %v, want null", forecast["tomorrow"])
	}
	today := forecast["today"].(map[string]any)
	if today["weather"] != "曇り" || today["avgPressure"] != 1008.0 {
		t.Fatalf("today = %v", today)
	}
}

func TestHeadacheReportErrors(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		err     error
		status  int
		message string
	}{
		{"missing city", "", nil, http.StatusBadRequest, msgCityRequired},
		{"blank city", "?city=%20%20", nil, http.StatusBadRequest, msgCityRequired},
		{"bad country", "?city=Tokyo&country=JPN", nil, http.StatusBadRequest, msgInvalidRequest},
		{"bad country without city", "?country=JPN", nil, http.StatusBadRequest, msgCityRequired},
		{"unknown city", "?city=nowhere", weather.ErrLocationNotFound, http.StatusNotFound, msgCityNotFound},
		{"provider failure", "?city=Tokyo", errors.New("upstream timeout"), http.StatusInternalServerError, msgFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakeService{reportErr: tt.err}, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/headache"+tt.query, nil)
			out := doJSON(t, app, req, tt.status)
			if out["success"] != false || out["error"] != tt.message {
				t.Fatalf("unexpected body: %v", out)
			}
		})
	}
}

func TestHistoryBadCountry(t *testing.T) {
	app := newTestApp(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/headache/history?city=Tokyo&country=JPN&from=1749500000&to=1749600000", nil)
	out := doJSON(t, app, req, http.StatusBadRequest)
	if out["error"] != msgInvalidRequest {
		t.Fatalf("error = %v, want %q", out["error"], msgInvalidRequest)
	}
}

func TestHistory(t *testing.T) {
	svc := &fakeService{history: []weather.Report{sampleReport()}}
	app := newTestApp(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/headache/history?city=Tokyo&from=2025-06-10T00:00:00Z&to=1749600000", nil)
	out := doJSON(t, app, req, http.StatusOK)

	reports := out["reports"].([]any)
	if len(reports) != 1 {
		t.Fatalf("reports = %v", reports)
	}
}

func TestHistoryValidation(t *testing.T) {
	app := newTestApp(&fakeService{historyErr: store.ErrNotFound}, nil)

	tests := []struct {
		query  string
		status int
	}{
		{"?city=Tokyo", http.StatusBadRequest},
		{"?city=Tokyo&from=yesterday&to=today", http.StatusBadRequest},
		{"?city=Tokyo&from=1749600000&to=1749500000", http.StatusBadRequest},
		{"?from=1749500000&to=1749600000", http.StatusBadRequest},
		{"?city=Tokyo&from=1749500000&to=1749600000", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/headache/history"+tt.query, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.query, tt.status, resp.StatusCode)
		}
	}
}

func TestShare(t *testing.T) {
	sharer := &fakeSharer{}
	app := newTestApp(&fakeService{report: sampleReport()}, sharer)

	body := strings.NewReader(`{"city":"札幌市","chatId":12345}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/headache/share", body)
	req.Header.Set("Content-Type", "application/json")

	out := doJSON(t, app, req, http.StatusOK)
	if out["messageId"] != 99.0 {
		t.Fatalf("unexpected body: %v", out)
	}
	if sharer.chatID != 12345 || sharer.city != "札幌市" {
		t.Fatalf("sharer got chat %d city %q", sharer.chatID, sharer.city)
	}
}

func TestShareErrors(t *testing.T) {
	tests := []struct {
		name   string
		sharer Sharer
		body   string
		status int
	}{
		{"disabled", nil, `{"city":"Tokyo","chatId":1}`, http.StatusServiceUnavailable},
		{"missing chat", &fakeSharer{}, `{"city":"Tokyo"}`, http.StatusBadRequest},
		{"missing city", &fakeSharer{}, `{"chatId":1}`, http.StatusBadRequest},
		{"malformed", &fakeSharer{}, `{"city":`, http.StatusBadRequest},
		{"send fails", &fakeSharer{err: errors.New("blocked")}, `{"city":"Tokyo","chatId":1}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakeService{report: sampleReport()}, tt.sharer)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/headache/share", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			out := doJSON(t, app, req, tt.status)
			if out["success"] != false {
				t.Fatalf("unexpected body: %v", out)
			}
		})
	}
}

func TestRiskPreview(t *testing.T) {
	app := newTestApp(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk?pressure=1005&condition="+url.QueryEscape("晴れ"), nil)
	out := doJSON(t, app, req, http.StatusOK)

	risk := out["headacheRisk"].(map[string]any)
	if risk["severity"] != "medium" || risk["class"] != "risk-medium" {
		t.Fatalf("headacheRisk = %v", risk)
	}

	for _, q := range []string{"", "?pressure=abc", "?pressure=NaN"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/risk"+q, nil)
		doJSON(t, app, req, http.StatusBadRequest)
	}
}
