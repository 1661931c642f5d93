package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
)

// LightMonitoringClient is used by sensor nodes to report readings and to poll for LED settings.
type LightMonitoringClient interface {
	PostReading(ctx context.Context, reading Reading) (string, error)
	LEDStatus(ctx context.Context) (LEDStatus, error)
}

type lightMonitoringClient struct {
	url        string
	httpClient http.Client
}

var tracer = otel.Tracer("iot-light-monitoring-client")

func New(url string) LightMonitoringClient {
	return &lightMonitoringClient{
		url: strings.TrimSuffix(url, "/"),
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// PostReading sends a reading and returns the id it was stored with.
func (c *lightMonitoringClient) PostReading(ctx context.Context, reading Reading) (string, error) {
	var err error
	ctx, span := tracer.Start(ctx, "post-sensor-reading")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)

	b, err := json.Marshal(reading)
	if err != nil {
		err = fmt.Errorf("failed to marshal reading: %w", err)
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/sensor", bytes.NewReader(b))
	if err != nil {
		err = fmt.Errorf("failed to create http request: %w", err)
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to post sensor reading: %w", err)
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body: %w", err)
		return "", err
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, errorMessage(respBody))
		return "", err
	}

	result := struct {
		Success bool `json:"success"`
		Reading struct {
			ID string `json:"id"`
		} `json:"reading"`
	}{}

	err = json.Unmarshal(respBody, &result)
	if err != nil {
		err = fmt.Errorf("failed to unmarshal response body: %w", err)
		return "", err
	}

	log.Debug().Msgf("sensor reading stored with id %s", result.Reading.ID)

	return result.Reading.ID, nil
}

func (c *lightMonitoringClient) LEDStatus(ctx context.Context) (LEDStatus, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-led-status")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/led/status", nil)
	if err != nil {
		err = fmt.Errorf("failed to create http request: %w", err)
		return LEDStatus{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to retrieve led status: %w", err)
		return LEDStatus{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body: %w", err)
		return LEDStatus{}, err
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, errorMessage(respBody))
		return LEDStatus{}, err
	}

	result := struct {
		Status ledStatusDTO `json:"status"`
	}{}

	err = json.Unmarshal(respBody, &result)
	if err != nil {
		err = fmt.Errorf("failed to unmarshal response body: %w", err)
		return LEDStatus{}, err
	}

	return result.Status.toLEDStatus(), nil
}

func errorMessage(body []byte) string {
	e := struct {
		Error string `json:"error"`
	}{}

	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}

	return string(body)
}
