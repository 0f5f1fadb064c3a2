package snurr

import (
	"maps"
	"slices"
)

// Styles maps preset names to animation frame sets, one grapheme cluster
// per frame. Pass an entry to WithFrames to use it. The table is
// read-only; entries are plain strings, so callers copy rather than
// mutate.
var Styles = map[string]string{
	"CLASSIC":     `/-\|`,             // classic ASCII spinner (default)
	"ARROWS":      "←↖↑↗→↘↓↙",         // arrow rotation
	"BAR":         "▁▂▃▄▅▆▇█▇▆▅▄▃▂▁",  // loading bar
	"BLOCKS":      "▌▀▐▄",             // minimal blocks
	"CLOCK":       "🕐🕑🕒🕓🕔🕕🕖🕗🕘🕙🕚🕛", // clock rotation
	"DOTS":        "⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏",      // braille dots
	"DOTS_BOUNCE": ".oOᐤ°ᐤOo.",        // bouncing dots
	"EARTH":       "🌍🌎🌏",             // earth rotation
	"HEARTS":      "💛💙💜💚",            // colorful hearts
	"MOON":        "🌑🌒🌓🌔🌕🌖🌗🌘",         // moon phases
	"SPARKLES":    "✨⭐️💫",             // sparkling
	"TRIANGLES":   "◢◣◤◥",             // rotating triangles
	"WAVE":        "⎺⎻⎼⎽⎼⎻",           // wave pattern
}

// StyleNames returns the preset names in sorted order.
func StyleNames() []string {
	return slices.Sorted(maps.Keys(Styles))
}
