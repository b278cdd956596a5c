package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"cloudpico-station/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	// Grab a free port and close it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	return config.Config{
		MQTTBroker:         "127.0.0.1",
		MQTTPort:           port,
		MQTTClientID:       "WeatherClient_test",
		MQTTConnectTimeout: time.Second,
		MQTTPublishTimeout: time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_ConnectRefused(t *testing.T) {
	c, err := NewClient(testConfig(t), discardLogger())
	if err != nil {
		t.Fatalf("NewClient() err = %v; want nil", err)
	}
	defer c.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err == nil {
		t.Fatalf("Connect() err = nil; want connection error")
	}
	if c.IsConnected() {
		t.Errorf("IsConnected() = true after failed connect")
	}
}

func TestClient_PublishWhenDisconnected(t *testing.T) {
	c, err := NewClient(testConfig(t), discardLogger())
	if err != nil {
		t.Fatalf("NewClient() err = %v; want nil", err)
	}
	defer c.Disconnect()

	if err := c.Publish("weather/temp", "21.50", true); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish() err = %v; want ErrNotConnected", err)
	}
}

func TestClient_ConnectAfterDisconnect(t *testing.T) {
	c, err := NewClient(testConfig(t), discardLogger())
	if err != nil {
		t.Fatalf("NewClient() err = %v; want nil", err)
	}
	c.Disconnect()
	c.Disconnect() // idempotent

	if err := c.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("Connect() err = %v; want ErrStopped", err)
	}
}
