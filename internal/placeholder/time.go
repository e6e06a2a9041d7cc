package placeholder

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"github.com/wardleworks/chatwarden/internal/world"
)

// clockFormat is the wall-clock layout used by every time placeholder.
const clockFormat = "15:04:05"

// namedZones maps city placeholder names to IANA zone identifiers.
var namedZones = map[string]string{
	"time_bangkok":     "Asia/Bangkok",
	"time_berlin":      "Europe/Berlin",
	"time_london":      "Europe/London",
	"time_los_angeles": "America/Los_Angeles",
	"time_new_york":    "America/New_York",
	"time_paris":       "Europe/Paris",
	"time_singapore":   "Asia/Singapore",
	"time_sydney":      "Australia/Sydney",
	"time_tokyo":       "Asia/Tokyo",
	"time_toronto":     "America/Toronto",
}

// registerTime wires the server clock, UTC/GMT aliases, named city zones,
// and the full fixed-offset family from UTC-12:00 through UTC+14:00 in
// whole, half, and three-quarter hour steps.
func (c *Catalog) registerTime() {
	c.Register("time_server", c.clockIn(time.Local))
	c.Register("time_utc", c.clockIn(time.UTC))
	c.Register("time_gmt", c.clockIn(time.UTC))

	for name, zoneID := range namedZones {
		loc, err := time.LoadLocation(zoneID)
		if err != nil {
			slog.Warn("placeholder: time zone unavailable", "zone", zoneID, "err", err)
			continue
		}
		c.Register(name, c.clockIn(loc))
	}

	for hour := -12; hour <= 14; hour++ {
		for _, minute := range []int{0, 30, 45} {
			c.Register(offsetName("utc", hour, minute), c.clockIn(offsetZone(hour, minute)))
			c.Register(offsetName("gmt", hour, minute), c.clockIn(offsetZone(hour, minute)))
		}
	}
}

// clockIn returns a provider rendering the catalog clock in loc. Time
// placeholders never touch game state, so the querier and player are unused.
func (c *Catalog) clockIn(loc *time.Location) Provider {
	return func(ctx context.Context, q world.Querier, playerID string) string {
		return c.now().In(loc).Format(clockFormat)
	}
}

// offsetName builds a token such as time_utc_plus_07_00 or
// time_gmt_minus_09_30.
func offsetName(prefix string, hour, minute int) string {
	sign := "plus"
	if hour < 0 {
		sign = "minus"
		hour = -hour
	}
	return fmt.Sprintf("time_%s_%s_%02d_%02d", prefix, sign, hour, minute)
}

// offsetZone builds the fixed zone for an hour:minute offset from UTC. A
// negative hour shifts the whole offset west, minutes included.
func offsetZone(hour, minute int) *time.Location {
	sign := 1
	if hour < 0 {
		sign = -1
		hour = -hour
	}
	seconds := sign * (hour*3600 + minute*60)
	return time.FixedZone(offsetLabel(sign, hour, minute), seconds)
}

func offsetLabel(sign, hour, minute int) string {
	marker := "+"
	if sign < 0 {
		marker = "-"
	}
	return fmt.Sprintf("UTC%s%02d:%02d", marker, hour, minute)
}
