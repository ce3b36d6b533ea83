// Package publish pushes outage snapshots and current prices to an MQTT
// broker as retained JSON messages.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/icodeforyou/malar-go/types"
)

const (
	qos            = 1
	publishTimeout = 5 * time.Second
	priceUnit      = "öre/kWh"
)

var ErrTimeout = errors.New("mqtt publish timed out")

type Publisher struct {
	client mqtt.Client
	logger *slog.Logger
	prefix string
}

type pricePayload struct {
	Sector types.Sector `json:"sector"`
	Start  time.Time    `json:"start"`
	End    time.Time    `json:"end"`
	Price  int64        `json:"price"`
	Unit   string       `json:"unit"`
}

type outagesPayload struct {
	UpdatedAt time.Time            `json:"updatedAt"`
	Outages   []types.OutageRecord `json:"outages"`
}

func New(broker string, port int16, username string, password string, prefix string) *Publisher {
	logger := slog.Default().With("module", "publish")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID("malar-" + uuid.NewString())
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected", slog.String("broker", broker))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	return NewWithClient(mqtt.NewClient(opts), prefix, logger)
}

// NewWithClient publishes through an already configured client.
func NewWithClient(client mqtt.Client, prefix string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default().With("module", "publish")
	}
	return &Publisher{client: client, logger: logger, prefix: prefix}
}

func (p *Publisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	token := p.client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("connecting to MQTT broker: %w", ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	return nil
}

func (p *Publisher) Disconnect() {
	p.logger.Debug("disconnecting MQTT client")
	p.client.Disconnect(250)
}

func (p *Publisher) OutagesTopic() string {
	return p.prefix + "/outages"
}

func (p *Publisher) PriceTopic(sector types.Sector) string {
	return p.prefix + "/price/" + sector.String()
}

// PublishOutages replaces the retained outage snapshot.
func (p *Publisher) PublishOutages(outages []types.OutageRecord, updatedAt time.Time) error {
	if outages == nil {
		outages = []types.OutageRecord{}
	}
	return p.publish(p.OutagesTopic(), outagesPayload{UpdatedAt: updatedAt, Outages: outages})
}

// PublishPrice replaces the retained current price for a sector.
func (p *Publisher) PublishPrice(sector types.Sector, price types.PriceInterval) error {
	return p.publish(p.PriceTopic(sector), pricePayload{
		Sector: sector,
		Start:  price.Start,
		End:    price.End,
		Price:  price.Price,
		Unit:   priceUnit,
	})
}

func (p *Publisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding payload for %s: %w", topic, err)
	}

	token := p.client.Publish(topic, qos, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: %w", topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	p.logger.Debug("published", slog.String("topic", topic), slog.Int("bytes", len(payload)))
	return nil
}
