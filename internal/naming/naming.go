// Package naming renders the human-readable names of election rooms.
//
// Rounds and room indices are stored 0-based; names display them 1-based.
// The +1 happens here and nowhere else.
package naming

import (
	"fmt"
	"time"
)

// Names holds both renderings of a room name.
type Names struct {
	Long  string
	Short string
}

// For returns the long and short names of a room.
// A year of 0 means the current calendar year.
func For(round, roomIndex, season, year int, isLastRound bool) Names {
	return Names{
		Long:  Long(round, roomIndex, season, year, isLastRound),
		Short: Short(round, roomIndex, season, year, isLastRound),
	}
}

// Long returns the chat description, e.g.
// "Eden - Round 1, Group 01, election. Season 4, Year 2022.".
func Long(round, roomIndex, season, year int, isLastRound bool) string {
	year = resolveYear(year)
	if isLastRound {
		return fmt.Sprintf("Eden Chief Delegates. Season %d, Year %d.", season, year)
	}
	return fmt.Sprintf("Eden - Round %d, Group %02d, election. Season %d, Year %d.",
		round+1, roomIndex+1, season, year)
}

// Short returns the chat title, e.g. "Eden R1G1 election S4,2022.".
func Short(round, roomIndex, season, year int, isLastRound bool) string {
	year = resolveYear(year)
	if isLastRound {
		return fmt.Sprintf("Eden Chief Delegates S%d, %d", season, year)
	}
	return fmt.Sprintf("Eden R%dG%d election S%d,%d.", round+1, roomIndex+1, season, year)
}

func resolveYear(year int) int {
	if year == 0 {
		return time.Now().Year()
	}
	return year
}
