package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/graysense/bsec-conduit/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "bsec-conduit-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	client := &Client{cfg: testConfig()}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "bsec-conduit/measurement/bme680", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "bsec-conduit/measurement/bme680", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"not connected", "bsec-conduit/measurement/bme680", []byte("x"), 1, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "conduit"
	cfg.Auth.Password = "hunter2"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers = %d, want 1", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want tcp://127.0.0.1:1883", got)
	}
	if opts.ClientID != "bsec-conduit-test" {
		t.Errorf("ClientID = %q, want bsec-conduit-test", opts.ClientID)
	}
	if opts.Username != "conduit" {
		t.Errorf("Username = %q, want conduit", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("broker scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Fatal("TLSConfig = nil, want configured")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "bsec-conduit-test")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "bsec-conduit/system/status" {
		t.Errorf("WillTopic = %q, want bsec-conduit/system/status", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	var payload map[string]any
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("LWT payload is not JSON: %v", err)
	}
	if payload["status"] != "offline" {
		t.Errorf("LWT status = %v, want offline", payload["status"])
	}
	if payload["reason"] != "unexpected_disconnect" {
		t.Errorf("LWT reason = %v, want unexpected_disconnect", payload["reason"])
	}
}

func TestStatusPayloads(t *testing.T) {
	var online, offline map[string]any
	if err := json.Unmarshal([]byte(buildOnlinePayload("c1")), &online); err != nil {
		t.Fatalf("online payload is not JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(buildOfflinePayload("c1")), &offline); err != nil {
		t.Fatalf("offline payload is not JSON: %v", err)
	}

	if online["status"] != "online" || online["client_id"] != "c1" {
		t.Errorf("online payload = %v", online)
	}
	if offline["status"] != "offline" || offline["reason"] != "graceful_shutdown" {
		t.Errorf("offline payload = %v", offline)
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		got  string
		want string
	}{
		{topics.Measurement("greenhouse-bme680"), "bsec-conduit/measurement/greenhouse-bme680"},
		{topics.SensorStatus("greenhouse-bme680"), "bsec-conduit/status/greenhouse-bme680"},
		{topics.SystemStatus(), "bsec-conduit/system/status"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}

	for _, tt := range tests {
		if !strings.HasPrefix(tt.got, TopicPrefix+"/") {
			t.Errorf("topic %q must live under %q", tt.got, TopicPrefix)
		}
	}
}
