package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	events []json.RawMessage
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, event json.RawMessage) error {
	h.events = append(h.events, event)
	return h.err
}

func TestRunLocal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty input", input: "", want: "{}"},
		{name: "schedule payload", input: "{}", want: "{}"},
		{name: "arbitrary event", input: `{"source":"manual"}`, want: `{"source":"manual"}`},
		{name: "invalid json", input: "{", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{}
			err := runLocal(context.Background(), h, strings.NewReader(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, h.events)
				return
			}
			require.NoError(t, err)
			require.Len(t, h.events, 1)
			assert.JSONEq(t, tt.want, string(h.events[0]))
		})
	}
}

func TestRunLocal_HandlerError(t *testing.T) {
	h := &recordingHandler{err: errors.New("RunTask failed")}
	err := runLocal(context.Background(), h, strings.NewReader("{}"))
	require.EqualError(t, err, "RunTask failed")
}
