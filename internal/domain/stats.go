package domain

import (
	"sort"
	"strings"
	"time"
)

type RegistrationStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Add counts n registrations in status s.
func (st *RegistrationStats) Add(s RegistrationStatus, n int) {
	st.Total += n
	switch s {
	case RegistrationStatusPending:
		st.Pending += n
	case RegistrationStatusApproved:
		st.Approved += n
	case RegistrationStatusRejected:
		st.Rejected += n
	}
}

type DailyStatusCount struct {
	Day time.Time `json:"day"`
	RegistrationStats
}

type PreferenceCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// TopPreferences tokenizes comma-delimited preference strings and returns the
// n most frequent tokens. Counting is case-sensitive; ties keep the order in
// which tokens were first seen. n <= 0 returns every token.
func TopPreferences(values []string, n int) []PreferenceCount {
	index := make(map[string]int)
	var counts []PreferenceCount
	for _, v := range values {
		for _, tok := range strings.Split(v, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if i, ok := index[tok]; ok {
				counts[i].Count++
				continue
			}
			index[tok] = len(counts)
			counts = append(counts, PreferenceCount{Value: tok, Count: 1})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// TemplateStats aggregates ledger rows for one template kind.
type TemplateStats struct {
	TemplateKind TemplateKind `json:"template_kind"`
	Total        int          `json:"total"`
	Sent         int          `json:"sent"`
	Failed       int          `json:"failed"`
	Opened       int          `json:"opened"`
	Clicked      int          `json:"clicked"`
	OpenRate     float64      `json:"open_rate"`
	ClickRate    float64      `json:"click_rate"`
}

// ComputeRates fills OpenRate and ClickRate. Sent counts every delivered
// email, including the ones since opened or clicked.
func (t *TemplateStats) ComputeRates() {
	if t.Sent <= 0 {
		t.OpenRate, t.ClickRate = 0, 0
		return
	}
	t.OpenRate = float64(t.Opened) / float64(t.Sent)
	t.ClickRate = float64(t.Clicked) / float64(t.Sent)
}
