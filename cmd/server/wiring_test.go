package main

import (
	"context"
	"errors"
	"testing"

	"otp-ceremony/backend/internal/config"
	"otp-ceremony/backend/internal/notify"
	"otp-ceremony/backend/internal/notify/gateway"
	"otp-ceremony/backend/internal/notify/kafka"
)

func TestBuildNotifier(t *testing.T) {
	cases := []struct {
		name         string
		cfg          config.Config
		wantDevStore bool
		check        func(t *testing.T, n notify.Notifier)
	}{
		{
			name: "no target",
			cfg:  config.Config{},
			check: func(t *testing.T, n notify.Notifier) {
				if err := n.Notify(context.Background(), notify.Message{}); !errors.Is(err, notify.ErrNoTarget) {
					t.Errorf("Notify = %v, want ErrNoTarget", err)
				}
			},
		},
		{
			name:         "no target in dev mode",
			cfg:          config.Config{OTPDevMode: true},
			wantDevStore: true,
			check: func(t *testing.T, n notify.Notifier) {
				if _, ok := n.(*notify.DevLog); !ok {
					t.Errorf("notifier = %T, want *notify.DevLog", n)
				}
			},
		},
		{
			name: "gateway in dev mode",
			cfg: config.Config{
				Notifier:            config.NotifierGateway,
				NotifyGatewayURL:    "http://gateway.local",
				NotifyGatewayAPIKey: "k",
				OTPDevMode:          true,
			},
			check: func(t *testing.T, n notify.Notifier) {
				if _, ok := n.(*gateway.Client); !ok {
					t.Errorf("notifier = %T, want *gateway.Client", n)
				}
			},
		},
		{
			name: "kafka in dev mode",
			cfg: config.Config{
				Notifier:         config.NotifierKafka,
				KafkaBrokers:     "localhost:9092",
				NotifyKafkaTopic: "otp-delivery",
				OTPDevMode:       true,
			},
			check: func(t *testing.T, n notify.Notifier) {
				if _, ok := n.(*kafka.Publisher); !ok {
					t.Errorf("notifier = %T, want *kafka.Publisher", n)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target, devStore, err := buildNotifier(&tc.cfg)
			if err != nil {
				t.Fatalf("buildNotifier: %v", err)
			}
			defer target.close()
			if (devStore != nil) != tc.wantDevStore {
				t.Errorf("dev store = %v, want present=%v", devStore, tc.wantDevStore)
			}
			tc.check(t, target.notifier)
		})
	}
}
