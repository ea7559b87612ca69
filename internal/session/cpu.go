package session

import (
	"fmt"
	"time"
)

const (
	MinSlider = 0
	MaxSlider = 10
	// SliderStep is the move delay removed per notch of the speed slider.
	SliderStep = 500 * time.Millisecond
)

// CPU describes a locally simulated opponent. Move selection is provided by
// the AI named here and is not part of this package.
type CPU struct {
	ID    string        `json:"id"`
	AI    string        `json:"ai"`
	Speed time.Duration `json:"speed"`
}

// SpeedFromSlider maps the 0..10 speed slider to a move delay; 10 is instant.
func SpeedFromSlider(v int) (time.Duration, error) {
	if v < MinSlider || v > MaxSlider {
		return 0, fmt.Errorf("speed slider must be in [%d, %d], got %d", MinSlider, MaxSlider, v)
	}
	return time.Duration(MaxSlider-v) * SliderStep, nil
}
