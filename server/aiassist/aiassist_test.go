package aiassist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGuidance(t *testing.T) {
	guidance, err := parseGuidance(`{"firstAidSteps": ["call 911"], "safetyTips": ["stay calm"], "beforeHelpArrives": ["unlock the door"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"call 911"}, guidance.FirstAidSteps)
	assert.Equal(t, []string{"stay calm"}, guidance.SafetyTips)
	assert.Equal(t, []string{"unlock the door"}, guidance.BeforeHelpArrives)
}

func TestParseGuidanceStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"firstAidSteps\": [\"apply pressure to the wound\"], \"safetyTips\": [], \"beforeHelpArrives\": []}\n```"

	guidance, err := parseGuidance(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"apply pressure to the wound"}, guidance.FirstAidSteps)
}

func TestParseGuidanceRejectsBadOutput(t *testing.T) {
	_, err := parseGuidance("sorry, I can't help with that")
	assert.Error(t, err)

	_, err = parseGuidance(`{"firstAidSteps": [], "safetyTips": [], "beforeHelpArrives": []}`)
	assert.Error(t, err)
}

func TestTestModeGuidance(t *testing.T) {
	client, err := NewClient(context.Background(), "", "", true)
	require.NoError(t, err)

	guidance, err := client.FirstAidGuidance(context.Background(), "someone collapsed")
	require.NoError(t, err)
	assert.NotEmpty(t, guidance.FirstAidSteps)
}
