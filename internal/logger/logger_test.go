package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "mealplan-test"})

	ctx := log.WithContext(context.Background())
	ctx = SetJobID(ctx, "job-42")
	ctx = SetPhase(ctx, 3)

	With(Fields{FieldCount: 7}).Info(ctx, "Phase %d done", 3)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Phase 3 done", line["message"])
	assert.Equal(t, "job-42", line[FieldJobID])
	assert.Equal(t, float64(3), line[FieldPhase])
	assert.Equal(t, float64(7), line[FieldCount])
	assert.Equal(t, "mealplan-test", line["service"])
	assert.Equal(t, "job-42", GetJobID(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, GetDefault(), FromContext(context.Background()))
}
