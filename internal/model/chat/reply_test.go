package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplySanitize(t *testing.T) {
	reply := Reply{
		Appraisal:  "threat",
		Regulation: []string{"deep breathing", " ", "grounding", "reframing"},
		Response:   "  I hear you.  ",
	}

	got := reply.Sanitize(false)
	assert.Equal(t, Threat, got.Appraisal)
	assert.Equal(t, []string{"deep breathing", "grounding"}, got.Regulation)
	assert.Equal(t, "I hear you.", got.Response)

	low := reply.Sanitize(true)
	assert.Empty(t, low.Regulation)

	assert.Equal(t, Challenge, Reply{Appraisal: "hopeful"}.Sanitize(true).Appraisal)
}

func TestRequestNormalize(t *testing.T) {
	req := Request{Message: "  hello  "}
	req.Normalize()
	assert.Equal(t, "hello", req.Message)
	assert.Equal(t, DefaultUserID, req.UserID)
}
