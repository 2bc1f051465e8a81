package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopPreferences(t *testing.T) {
	got := TopPreferences([]string{"Rock, Jazz", "rock", "Jazz, Pop"}, 0)
	assert.Equal(t, []PreferenceCount{
		{Value: "Jazz", Count: 2},
		{Value: "Rock", Count: 1},
		{Value: "rock", Count: 1},
		{Value: "Pop", Count: 1},
	}, got)

	top := TopPreferences([]string{"Rock, Jazz", "rock", "Jazz, Pop"}, 2)
	assert.Equal(t, []PreferenceCount{{Value: "Jazz", Count: 2}, {Value: "Rock", Count: 1}}, top)
}

func TestTopPreferences_SkipsEmptyTokens(t *testing.T) {
	got := TopPreferences([]string{"", " , ", "Opera,,", "  Opera  "}, 5)
	assert.Equal(t, []PreferenceCount{{Value: "Opera", Count: 2}}, got)
}

func TestRegistrationStats_Add(t *testing.T) {
	var st RegistrationStats
	st.Add(RegistrationStatusPending, 3)
	st.Add(RegistrationStatusApproved, 2)
	st.Add(RegistrationStatusRejected, 1)
	assert.Equal(t, RegistrationStats{Total: 6, Pending: 3, Approved: 2, Rejected: 1}, st)
}

func TestTemplateStats_ComputeRates(t *testing.T) {
	ts := TemplateStats{Total: 5, Sent: 4, Failed: 1, Opened: 2, Clicked: 1}
	ts.ComputeRates()
	assert.InDelta(t, 0.5, ts.OpenRate, 1e-9)
	assert.InDelta(t, 0.25, ts.ClickRate, 1e-9)

	empty := TemplateStats{Total: 2, Failed: 2}
	empty.ComputeRates()
	assert.Zero(t, empty.OpenRate)
	assert.Zero(t, empty.ClickRate)
}
