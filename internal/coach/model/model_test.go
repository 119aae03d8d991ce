package model

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestEnumsValidate(t *testing.T) {
	assert.True(t, DriverSkillErosion.Valid())
	assert.False(t, Driver("burnout").Valid())
	assert.True(t, BandMid.Valid())
	assert.False(t, Band("extreme").Valid())
	assert.Equal(t, DriverValueThreat, DefaultDriver)
}

func TestTranscriptHelpers(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("first"),
		schema.AssistantMessage("reply one", nil),
		nil,
		schema.UserMessage("second"),
		schema.AssistantMessage("reply two", nil),
		schema.UserMessage("third"),
	}

	assert.Equal(t, "first\nsecond\nthird", UserText(msgs))
	assert.Equal(t, "reply two", LastAssistant(msgs))
	assert.Equal(t, "", LastAssistant(msgs[:2]))
	assert.Equal(t, "", UserText(nil))
}

func TestBaselineIntensityPrefersConfirmed(t *testing.T) {
	s := &SessionState{Intensity: 7}
	assert.Equal(t, 7, s.BaselineIntensity())

	confirmed := 4
	s.ConfirmedIntensity = &confirmed
	assert.Equal(t, 4, s.BaselineIntensity())
}
