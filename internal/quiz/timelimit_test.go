package quiz

import "testing"

func TestTimeLimitMinutes(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{1, 15},
		{19, 15},
		{20, 15}, // edge counts take the lower tier inclusively
		{21, 30},
		{40, 30},
		{41, 60},
		{60, 60},
		{61, 0}, // unbounded
		{200, 0},
	}

	for _, tt := range tests {
		if got := TimeLimitMinutes(tt.count); got != tt.want {
			t.Errorf("TimeLimitMinutes(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}
