package repack

import "testing"

func TestTargetID(t *testing.T) {
	for _, tt := range []struct {
		kitName, pvt string
		want         string
	}{
		{"libA", "ss_100c", "libA::ss_100c"},
		{"libB", "", "libB::ALL"},
	} {
		if got := TargetID(tt.kitName, tt.pvt); got != tt.want {
			t.Errorf("TargetID(%q, %q) = %q, want %q", tt.kitName, tt.pvt, got, tt.want)
		}
	}
}

func TestSplitTargetID(t *testing.T) {
	for _, tt := range []struct {
		id           string
		wantKit, wantPVT string
	}{
		{"libA::ss_100c", "libA", "ss_100c"},
		{"libB::ALL", "libB", ""},
		{"malformed", "malformed", ""},
	} {
		gotKit, gotPVT := SplitTargetID(tt.id)
		if gotKit != tt.wantKit || gotPVT != tt.wantPVT {
			t.Errorf("SplitTargetID(%q) = (%q, %q), want (%q, %q)", tt.id, gotKit, gotPVT, tt.wantKit, tt.wantPVT)
		}
	}
}

func TestTargetIDRoundTrip(t *testing.T) {
	for _, tt := range []struct{ kitName, pvt string }{
		{"libA", "ss_100c"},
		{"libB", ""},
	} {
		id := TargetID(tt.kitName, tt.pvt)
		gotKit, gotPVT := SplitTargetID(id)
		if gotKit != tt.kitName || gotPVT != tt.pvt {
			t.Errorf("round trip of (%q, %q) via %q = (%q, %q)", tt.kitName, tt.pvt, id, gotKit, gotPVT)
		}
	}
}

func TestMatchPVT(t *testing.T) {
	for _, tt := range []struct {
		depPVT, targetPVT string
		want              bool
	}{
		{"ss_100c", "ss_100c", true},
		{"ss_100c", "ff_0c", false},
		{"", "ff_0c", true}, // dependency is a barrier
		{"ss_100c", "", true}, // target is a barrier
		{"", "", true},
	} {
		if got := MatchPVT(tt.depPVT, tt.targetPVT); got != tt.want {
			t.Errorf("MatchPVT(%q, %q) = %v, want %v", tt.depPVT, tt.targetPVT, got, tt.want)
		}
	}
}
