package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/energylog/internal/config"
	"github.com/jgoulah/energylog/pkg/models"
)

// SyncSummary is the retained message published after a successful sync
type SyncSummary struct {
	Device           string  `json:"device"`
	Start            string  `json:"start,omitempty"`
	End              string  `json:"end,omitempty"`
	Days             int     `json:"days"`
	ConsumptionTotal float64 `json:"consumption_total"`
	Cost             float64 `json:"cost"`
	Rate             float64 `json:"rate"`
	Qualified        bool    `json:"qualified"`
	SyncedAt         string  `json:"synced_at"`
}

// Summarize builds the summary of a submitted batch
func Summarize(batch models.Batch, result models.SubmitResult, start, end string, now time.Time) SyncSummary {
	var total float64
	for _, e := range batch.Entries {
		total += e.ConsumptionTotal
	}
	rate := batch.Rate()
	return SyncSummary{
		Device:           batch.DeviceName,
		Start:            start,
		End:              end,
		Days:             len(batch.Entries),
		ConsumptionTotal: total,
		Cost:             total * rate,
		Rate:             rate,
		Qualified:        result.Qualified,
		SyncedAt:         now.UTC().Format(time.RFC3339),
	}
}

// Announcer publishes sync summaries to an MQTT broker
type Announcer struct {
	client      mqtt.Client
	topicPrefix string
}

// NewAnnouncer connects to the configured broker
func NewAnnouncer(cfg config.MQTTConfig) (*Announcer, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	topicPrefix := cfg.TopicPrefix
	if topicPrefix == "" {
		topicPrefix = "energylog"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "energylog"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return &Announcer{client: client, topicPrefix: topicPrefix}, nil
}

// Topic returns the topic a device's summary is published to
func (a *Announcer) Topic(device string) string {
	return fmt.Sprintf("%s/%s/sync", a.topicPrefix, device)
}

// Announce publishes the summary as a retained message
func (a *Announcer) Announce(summary SyncSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}

	token := a.client.Publish(a.Topic(summary.Device), 1, true, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publishing to MQTT: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to MQTT: %w", err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (a *Announcer) Close() {
	if a.client != nil && a.client.IsConnected() {
		a.client.Disconnect(250)
	}
}
