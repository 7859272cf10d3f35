package webui

import (
	"encoding/json"
	"testing"
	"time"
)

func TestGenerationMessagesJSON(t *testing.T) {
	tests := []struct {
		name     string
		msg      WSMessage
		wantType string
		wantKeys []string
	}{
		{
			name:     "started",
			msg:      NewGenerationStartedMessage(GenerationStartedData{ID: "x", Style: "anime", Prompt: "p"}),
			wantType: "generation.started",
			wantKeys: []string{"id", "style", "prompt"},
		},
		{
			name: "completed",
			msg: NewGenerationCompletedMessage(GenerationCompletedData{
				ID: "x", Style: "anime", Status: "completed", Mode: ModeBasic, ProcessingTime: "5ms",
			}),
			wantType: "generation.completed",
			wantKeys: []string{"id", "status", "mode", "processingTime", "durationMs"},
		},
		{
			name:     "error",
			msg:      NewErrorMessage("busy", "try later"),
			wantType: "error",
			wantKeys: []string{"code", "message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if time.Since(tt.msg.Timestamp) > time.Minute {
				t.Errorf("timestamp not set: %v", tt.msg.Timestamp)
			}
			raw, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatal(err)
			}
			var decoded struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			}
			if err := json.Unmarshal(raw, &decoded); err != nil {
				t.Fatal(err)
			}
			if decoded.Type != tt.wantType {
				t.Errorf("type = %q, want %q", decoded.Type, tt.wantType)
			}
			for _, k := range tt.wantKeys {
				if _, ok := decoded.Data[k]; !ok {
					t.Errorf("data missing %q in %s", k, raw)
				}
			}
		})
	}
}
