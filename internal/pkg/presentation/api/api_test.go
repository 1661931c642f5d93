package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/router"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestHealthEndpoint(t *testing.T) {
	is, server := testSetup(t)

	resp, _ := testRequest(server, http.MethodGet, "/health", "")
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestPostSensorReading(t *testing.T) {
	is, server := testSetup(t)

	resp, body := testRequest(server, http.MethodPost, "/api/sensor", `{"light_intensity": 100, "expected_intensity": 40, "temperature": 18.5}`)
	is.Equal(resp.StatusCode, http.StatusCreated)

	var result struct {
		Success bool `json:"success"`
		Reading struct {
			ID                  string   `json:"id"`
			DeviationPercentage *float64 `json:"deviation_percentage"`
		} `json:"reading"`
	}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.True(result.Success)
	is.True(result.Reading.ID != "")
	is.Equal(*result.Reading.DeviationPercentage, 150.0)

	resp, body = testRequest(server, http.MethodGet, "/api/alerts?open=true", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, "Critical sensor deviation detected: 150.0% difference from expected value"))
}

func TestPostSensorReadingWithoutLightIntensity(t *testing.T) {
	is, server := testSetup(t)

	resp, body := testRequest(server, http.MethodPost, "/api/sensor", `{"expected_intensity": 40}`)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.Equal(body, `{"error":"Missing or invalid light_intensity"}`)

	resp, body = testRequest(server, http.MethodPost, "/api/sensor", `{"light_intensity": "bright"}`)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.Equal(body, `{"error":"Missing or invalid light_intensity"}`)
}

func TestLatestSensorReading(t *testing.T) {
	is, server := testSetup(t)

	resp, _ := testRequest(server, http.MethodGet, "/api/sensor/latest", "")
	is.Equal(resp.StatusCode, http.StatusNotFound)

	testRequest(server, http.MethodPost, "/api/sensor", `{"light_intensity": 321}`)

	resp, body := testRequest(server, http.MethodGet, "/api/sensor/latest", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"light_intensity":321`))

	resp, body = testRequest(server, http.MethodGet, "/api/sensor/summary", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"today_count":1`))
	is.True(strings.Contains(body, `"connected":true`))
}

func TestQuerySensorReadingsRejectsBadLimit(t *testing.T) {
	is, server := testSetup(t)

	resp, _ := testRequest(server, http.MethodGet, "/api/sensor/readings?limit=none", "")
	is.Equal(resp.StatusCode, http.StatusBadRequest)

	resp, body := testRequest(server, http.MethodGet, "/api/sensor/readings?from=2024-06-01T00:00:00Z", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"count":0`))
}

func TestQuerySensorReadingsInAscendingOrder(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	db, err := database.NewSQLiteConnector(ctx)()
	is.NoErr(err)

	mu := sync.Mutex{}
	now := testNow
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}

	app, err := application.New(db, nil, nil, nil, application.WithClock(clock))
	is.NoErr(err)

	server := httptest.NewServer(RegisterHandlers(ctx, router.New("iot-light-monitoring"), app, nil))
	defer server.Close()

	for _, body := range []string{`{"light_intensity": 1}`, `{"light_intensity": 2}`, `{"light_intensity": 3}`} {
		resp, _ := testRequest(server, http.MethodPost, "/api/sensor", body)
		is.Equal(resp.StatusCode, http.StatusCreated)
	}

	intensities := func(path string) []float64 {
		resp, body := testRequest(server, http.MethodGet, path, "")
		is.Equal(resp.StatusCode, http.StatusOK)

		var result struct {
			Data []struct {
				LightIntensity float64 `json:"light_intensity"`
			} `json:"data"`
		}
		is.NoErr(json.Unmarshal([]byte(body), &result))

		values := []float64{}
		for _, r := range result.Data {
			values = append(values, r.LightIntensity)
		}
		return values
	}

	is.Equal(intensities("/api/sensor/readings"), []float64{3, 2, 1})
	is.Equal(intensities("/api/sensor/readings?order=asc"), []float64{1, 2, 3})

	resp, _ := testRequest(server, http.MethodGet, "/api/sensor/readings?order=sideways", "")
	is.Equal(resp.StatusCode, http.StatusBadRequest)
}

func TestLedStatusDefault(t *testing.T) {
	is, server := testSetup(t)

	resp, body := testRequest(server, http.MethodGet, "/api/led/status", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"status":{"led_status":false,"brightness":0,"color_temperature":5000,"control_mode":"manual","data_source":null},"success":true}`)
}

func TestApplyLedControl(t *testing.T) {
	is, server := testSetup(t)

	resp, _ := testRequest(server, http.MethodPost, "/api/led", `{"led_status": true, "brightness_level": 80, "color_temperature": 4000, "control_mode": "auto", "data_source": "sensor_gps"}`)
	is.Equal(resp.StatusCode, http.StatusCreated)

	resp, body := testRequest(server, http.MethodGet, "/api/led/status", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"brightness_level":80`))
	is.True(strings.Contains(body, `"data_source":"sensor_gps"`))

	resp, _ = testRequest(server, http.MethodPost, "/api/led", `{"led_status": true, "brightness_level": 180}`)
	is.Equal(resp.StatusCode, http.StatusBadRequest)

	resp, body = testRequest(server, http.MethodGet, "/api/led/history", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"count":1`))
}

func TestCctvUpload(t *testing.T) {
	is, server := testSetup(t)

	resp, body := testRequest(server, http.MethodPost, "/api/cctv/upload", `{"file_name": "clip.mp4"}`)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.Equal(body, `{"error":"Missing required fields: file_url, file_name"}`)

	resp, body = testRequest(server, http.MethodPost, "/api/cctv/upload", `{"file_url": "https://cdn/clip.mp4", "file_name": "clip.mp4", "file_size": 3.5}`)
	is.Equal(resp.StatusCode, http.StatusCreated)
	is.True(strings.Contains(body, `"video_url":"https://cdn/clip.mp4"`))

	resp, _ = testRequest(server, http.MethodPost, "/api/cctv", `{"video_url": "rtsp://cam/1", "duration_seconds": 60}`)
	is.Equal(resp.StatusCode, http.StatusCreated)

	resp, body = testRequest(server, http.MethodGet, "/api/cctv", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"count":2`))
}

func TestResolveAlert(t *testing.T) {
	is, server := testSetup(t)

	resp, _ := testRequest(server, http.MethodPatch, "/api/alerts/unknown", "")
	is.Equal(resp.StatusCode, http.StatusNotFound)

	testRequest(server, http.MethodPost, "/api/sensor", `{"light_intensity": 10, "expected_intensity": 40}`)

	_, body := testRequest(server, http.MethodGet, "/api/alerts?type=sensor_deviation", "")

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	is.NoErr(json.Unmarshal([]byte(body), &result))
	is.Equal(len(result.Data), 1)

	resp, body = testRequest(server, http.MethodPatch, "/api/alerts/"+result.Data[0].ID, "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"is_resolved":true`))

	_, body = testRequest(server, http.MethodGet, "/api/alerts?open=true", "")
	is.True(strings.Contains(body, `"count":0`))
}

func TestExport(t *testing.T) {
	is, server := testSetup(t)

	testRequest(server, http.MethodPost, "/api/sensor", `{"light_intensity": 55.5}`)

	resp, body := testRequest(server, http.MethodGet, "/api/export/sensor-data", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "text/csv")
	is.Equal(resp.Header.Get("Content-Disposition"), `attachment; filename="sensor_data_2024-06-01T12:00:00.000Z.csv"`)

	lines := strings.Split(strings.TrimSpace(body), "\n")
	is.Equal(len(lines), 2)
	is.True(strings.HasPrefix(lines[0], "ID,Timestamp,Light Intensity (lux)"))

	resp, _ = testRequest(server, http.MethodGet, "/api/export/everything", "")
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestExportEmptyDatasetReturnsHeaderOnly(t *testing.T) {
	is, server := testSetup(t)

	resp, body := testRequest(server, http.MethodGet, "/api/export/alerts", "")
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "text/csv")
	is.Equal(resp.Header.Get("Content-Disposition"), `attachment; filename="alerts_2024-06-01T12:00:00.000Z.csv"`)

	lines := strings.Split(strings.TrimSpace(body), "\n")
	is.Equal(len(lines), 1)
	is.Equal(lines[0], "ID,Timestamp,Alert Type,Severity,Message,Is Resolved")
}

func testSetup(t *testing.T) (*is.I, *httptest.Server) {
	is := is.New(t)
	ctx := context.Background()

	db, err := database.NewSQLiteConnector(ctx)()
	is.NoErr(err)

	app, err := application.New(db, nil, nil, nil, application.WithClock(func() time.Time { return testNow }))
	is.NoErr(err)

	r := RegisterHandlers(ctx, router.New("iot-light-monitoring"), app, nil)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return is, server
}

func testRequest(ts *httptest.Server, method, path string, body string) (*http.Response, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, _ := http.NewRequest(method, ts.URL+path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, ""
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return resp, string(respBody)
}
