package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/docflow/pkg/config"
)

func TestStoreFeedContainer(t *testing.T) {
	tests := []struct {
		name            string
		containerSource string
		target          string
		want            string
	}{
		{name: "configured container", containerSource: "config", target: "orders", want: "orders"},
		{name: "falls back to upload default", containerSource: "config", want: "docflow-inbox"},
		{name: "notified container watches all", containerSource: "notification", target: "orders", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Upload.DefaultContainer = "docflow-inbox"
			cfg.Ingestion.ContainerSource = tt.containerSource
			cfg.Ingestion.TargetContainer = tt.target
			assert.Equal(t, tt.want, storeFeedContainer(cfg))
		})
	}
}
