package scoring

import "testing"

func TestCanTransition_Forward(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusRecommended, true},
		{StatusRecommended, StatusActioned, true},
		{StatusDraft, StatusActioned, false},
		{StatusRecommended, StatusDraft, false},
		{StatusActioned, StatusRecommended, false},
		{StatusActioned, StatusDraft, false},
		{StatusDraft, StatusDraft, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
