package chat

import "strings"

// Appraisal is the Lazarus appraisal tag attached to a reply.
type Appraisal string

const (
	Threat    Appraisal = "Threat"
	Challenge Appraisal = "Challenge"
)

// maxRegulation caps the number of regulation strategies in a reply.
const maxRegulation = 2

// Reply is the JSON object the model is asked to produce.
type Reply struct {
	Appraisal  Appraisal `json:"appraisal"`
	Regulation []string  `json:"regulation"`
	Response   string    `json:"response"`
}

// Sanitize normalizes the appraisal, trims the regulation list and drops it entirely
// for low-intensity turns.
func (r Reply) Sanitize(lowIntensity bool) Reply {
	switch strings.ToLower(strings.TrimSpace(string(r.Appraisal))) {
	case "threat":
		r.Appraisal = Threat
	default:
		r.Appraisal = Challenge
	}

	regulation := make([]string, 0, maxRegulation)
	if !lowIntensity {
		for _, s := range r.Regulation {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			regulation = append(regulation, s)
			if len(regulation) == maxRegulation {
				break
			}
		}
	}
	r.Regulation = regulation
	r.Response = strings.TrimSpace(r.Response)
	return r
}
