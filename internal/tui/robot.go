package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sproutai/sprout/internal/models"
)

// RobotName is shown under the robot head in the sidebar
const RobotName = "Zarco Unit 01"

const (
	eyeGlyph      = "●"
	mouthIdle     = "───"
	badgeSpeaking = "◉ speaking"
	badgeIdle     = "○ idle"
)

// mouth frames while speaking
var mouthFrames = []string{"◡◡◡", "───", "◠◠◠", "───"}

// eyeColor maps the indicator to the theme's eye color
func eyeColor(indicator models.IndicatorColor) lipgloss.Color {
	if indicator == models.IndicatorActive {
		return colorEyeActive
	}
	return colorEyeIdle
}

// renderRobot draws the sidebar robot for the given turn state.
// frame drives the mouth and badge animation while streaming.
func renderRobot(state models.TurnState, frame int) string {
	eye := lipgloss.NewStyle().Foreground(eyeColor(state.Indicator)).Bold(true).Render(eyeGlyph)
	eyes := eye + strings.Repeat(" ", 5) + eye

	mouth := mouthIdle
	if state.Streaming {
		mouth = mouthFrames[frame%len(mouthFrames)]
	}

	head := robotHeadStyle.Render(lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		eyes,
		"",
		robotMouthStyle.Render(mouth),
	))

	return lipgloss.JoinVertical(
		lipgloss.Center,
		head,
		robotNameStyle.Render(RobotName),
		"",
		renderBadge(state, frame),
	)
}

// renderBadge shows the speaking flag with a pulsing glow
func renderBadge(state models.TurnState, frame int) string {
	if !state.Streaming {
		return badgeIdleStyle.Render(badgeIdle)
	}
	glow := glowColors[frame%len(glowColors)]
	return lipgloss.NewStyle().
		Foreground(glow).
		Bold(true).
		Render(badgeSpeaking)
}
