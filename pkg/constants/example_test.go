package constants_test

import (
	"fmt"
	"time"

	"github.com/agentstation/lineup/pkg/constants"
)

// Example_thresholds shows how thresholds gate candidate scores.
func Example_thresholds() {
	score := 0.72
	fmt.Println("link venue:", score >= constants.VenueLinkThreshold)
	fmt.Println("link artist:", score >= constants.ArtistLinkThreshold)
	// Output:
	// link venue: true
	// link artist: false
}

// Example_dates parses an event date with the shared layout.
func Example_dates() {
	d, err := time.Parse(constants.DateFormat, "2026-05-01")
	if err != nil {
		panic(err)
	}
	fmt.Println(d.Weekday())
	// Output: Friday
}
