package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/diwise/iot-light-monitoring/pkg/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const serviceName string = "sensor-node"

func main() {
	_ = godotenv.Load()

	ctx, logger := logging.NewLogger(context.Background(), serviceName, buildinfo.SourceVersion())

	baseURL := flag.String("url", env.GetVariableOrDefault(logger, "LIGHT_MONITORING_URL", "http://localhost:8080"), "base url of the light monitoring service")
	readInterval := flag.Duration("read-interval", 5*time.Second, "how often to post a sensor reading")
	ledInterval := flag.Duration("led-interval", 2*time.Second, "how often to poll for led settings")
	expected := flag.Float64("expected", 1000, "expected light intensity in lux, 0 to omit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	node := &node{
		client:   client.New(*baseURL),
		sensor:   newSimulatedSensor(*expected),
		logger:   logger,
		interval: *readInterval,
		poll:     *ledInterval,
	}

	logger.Info().Str("url", *baseURL).Msg("sensor node started")
	node.run(ctx)
	logger.Info().Msg("sensor node stopped")
}

type sensor interface {
	Read() client.Reading
}

type node struct {
	client   client.LightMonitoringClient
	sensor   sensor
	logger   zerolog.Logger
	interval time.Duration
	poll     time.Duration

	current *client.LEDStatus
}

func (n *node) run(ctx context.Context) {
	readings := time.NewTicker(n.interval)
	defer readings.Stop()

	leds := time.NewTicker(n.poll)
	defer leds.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readings.C:
			n.sendReading(ctx)
		case <-leds.C:
			n.checkLEDs(ctx)
		}
	}
}

func (n *node) sendReading(ctx context.Context) {
	r := n.sensor.Read()

	id, err := n.client.PostReading(ctx, r)
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to send sensor reading")
		return
	}

	n.logger.Info().Str("id", id).Msgf("sensor data sent: %.2f lux", r.LightIntensity)
}

// checkLEDs applies the LED settings if they changed since the last poll.
func (n *node) checkLEDs(ctx context.Context) bool {
	status, err := n.client.LEDStatus(ctx)
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to fetch led settings")
		return false
	}

	if n.current != nil && *n.current == status {
		return false
	}

	n.current = &status

	n.logger.Info().
		Bool("on", status.On).
		Str("mode", status.ControlMode).
		Int("brightness", status.Brightness).
		Int("color_temperature", status.ColorTemperature).
		Str("data_source", status.DataSource).
		Msg("new led settings received")

	return true
}

type simulatedSensor struct {
	expected float64
	rnd      *rand.Rand
}

func newSimulatedSensor(expected float64) *simulatedSensor {
	return &simulatedSensor{
		expected: expected,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *simulatedSensor) Read() client.Reading {
	r := client.Reading{
		LightIntensity: 500 + s.rnd.Float64()*700,
	}

	if s.expected > 0 {
		expected := s.expected
		r.ExpectedIntensity = &expected
	}

	temperature, humidity := 22.5, 45.0
	r.Temperature = &temperature
	r.Humidity = &humidity

	return r
}
