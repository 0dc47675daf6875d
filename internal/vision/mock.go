package vision

import (
	"context"
	"time"
)

func strPtr(s string) *string { return &s }

var mockActs = []AnalyzedAct{
	{Code: strPtr("HBLD038"), Description: "Couronne céramique (Mock)", Price: 550, Type: "Prothèse"},
	{Code: strPtr("HBQK002"), Description: "Radiographie panoramique (Mock)", Price: 21.28, Type: "Radio"},
}

// MockAnalyzer returns a fixed reading after Delay. Used for demos and tests.
type MockAnalyzer struct {
	Delay time.Duration
}

func (m MockAnalyzer) Provider() string { return "mock" }

func (m MockAnalyzer) Analyze(ctx context.Context, _ Image) ([]AnalyzedAct, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	out := make([]AnalyzedAct, len(mockActs))
	copy(out, mockActs)
	return out, nil
}
