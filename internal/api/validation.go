package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/MJE43/puyobattle/internal/session"
	"github.com/MJE43/puyobattle/internal/settings"
)

const (
	maxChainSteps = 64
	maxStepTiles  = 100 * 50
	maxElapsedMs  = 24 * 60 * 60 * 1000
	maxRoomLength = 128
)

// ValidateBuildSettingsRequest rejects unknown field names
func ValidateBuildSettingsRequest(req *BuildSettingsRequest) error {
	var unknown []string
	for name := range req.Fields {
		if !lo.Contains(settings.Fields, settings.Field(name)) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown fields: %s", strings.Join(unknown, ", "))
	}
	if (req.Room == "") != (req.Nonce == nil) {
		return fmt.Errorf("room and nonce must be given together")
	}
	if len(req.Room) > maxRoomLength {
		return fmt.Errorf("room too long (max %d)", maxRoomLength)
	}
	return nil
}

// ValidateWireRequest requires a non-blank wire string
func ValidateWireRequest(req *WireRequest) error {
	if strings.TrimSpace(req.Wire) == "" {
		return fmt.Errorf("wire is required")
	}
	return nil
}

// ValidateScoreRequest bounds the size of a chain
func ValidateScoreRequest(req *ScoreRequest) error {
	if len(req.Steps) == 0 {
		return fmt.Errorf("steps is required")
	}
	if len(req.Steps) > maxChainSteps {
		return fmt.Errorf("too many steps (max %d)", maxChainSteps)
	}
	for i, step := range req.Steps {
		if len(step.Tiles) > maxStepTiles {
			return fmt.Errorf("step %d clears too many tiles (max %d)", i, maxStepTiles)
		}
	}
	return nil
}

// ValidateMarginRequest bounds the simulated match length
func ValidateMarginRequest(req *MarginRequest) error {
	if err := ValidateWireRequest(&WireRequest{Wire: req.Wire}); err != nil {
		return err
	}
	if req.ElapsedMs < 0 || req.ElapsedMs > maxElapsedMs {
		return fmt.Errorf("elapsed_ms must be in [0, %d]", maxElapsedMs)
	}
	return nil
}

// ValidateSeedRequest requires a room
func ValidateSeedRequest(req *SeedRequest) error {
	if req.Room == "" {
		return fmt.Errorf("room is required")
	}
	if len(req.Room) > maxRoomLength {
		return fmt.Errorf("room too long (max %d)", maxRoomLength)
	}
	return nil
}

// ValidateMatchRequest checks peers and that events are in time order
func ValidateMatchRequest(req *MatchRequest) error {
	if err := ValidateWireRequest(&WireRequest{Wire: req.Wire}); err != nil {
		return err
	}
	if req.Human == "" {
		return fmt.Errorf("human is required")
	}
	for i, cpu := range req.CPUs {
		if _, err := session.SpeedFromSlider(cpu.Slider); err != nil {
			return fmt.Errorf("cpus[%d]: %w", i, err)
		}
	}
	var last int64
	for i, ev := range req.Events {
		if ev.AtMs < last || ev.AtMs > maxElapsedMs {
			return fmt.Errorf("events[%d]: at_ms must be non-decreasing and at most %d", i, maxElapsedMs)
		}
		last = ev.AtMs
		if err := ValidateScoreRequest(&ScoreRequest{Steps: ev.Steps}); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}
	return nil
}
