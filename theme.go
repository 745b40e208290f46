package fastlane

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values. A negative
// index means no color.
type Theme struct {
	Pending    int // Fields with no value yet
	Incomplete int // Fields whose value is still growing
	Complete   int // Fields whose value is final
	Required   int // Required-field marker
	Error      int // Rejections and failures
	Success    int // Trigger and final banners
	Muted      int // Timings, labels
	Accent     int // Headings
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Pending:    8,
		Incomplete: 3,
		Complete:   2,
		Required:   5,
		Error:      1,
		Success:    2,
		Muted:      8,
		Accent:     4,
	}
}

// NoColorTheme returns a theme that renders without color.
func NoColorTheme() Theme {
	return Theme{-1, -1, -1, -1, -1, -1, -1, -1}
}
