package session

import "testing"

func TestStartProfileFor(t *testing.T) {
	tests := []struct {
		name string
		tier DeviceTier
		want StreamProfile
	}{
		{"high tier", TierHigh, highTierProfile},
		{"low tier", TierLow, lowTierProfile},
		{"default resolves to high", TierDefault, highTierProfile},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := StartProfileFor(tc.tier); got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestApplyOverrideIgnoresDowngrade(t *testing.T) {
	base := highTierProfile
	downgrade := StreamProfile{Width: 480, Height: 640, Bitrate: 900_000, Fps: 15}
	if got := ApplyOverride(base, downgrade); got != base {
		t.Fatalf("expected downgrade override to be ignored, got %+v", got)
	}
}

func TestApplyOverrideAcceptsValidOverride(t *testing.T) {
	base := highTierProfile
	override := StreamProfile{Width: 1920, Height: 1080, Bitrate: 6_000_000, Fps: 30}
	if got := ApplyOverride(base, override); got != override {
		t.Fatalf("expected override applied, got %+v", got)
	}
}

func TestApplyOverrideNoOverrideConfigured(t *testing.T) {
	base := highTierProfile
	if got := ApplyOverride(base, StreamProfile{}); got != base {
		t.Fatalf("expected base profile when no override configured")
	}
}
