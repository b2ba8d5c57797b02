// Package dateparse converts the case timeline's "received" caption into
// discrete date parts.
//
// Input format: "<Mon> <Day>, <Year> <Hour>:<Minute> <am|pm>", for example
// "Feb 05, 2026 11:04 am PST". Anything after the am/pm marker is ignored.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Parts is a received date broken into the fields the external form expects.
type Parts struct {
	Year   int `json:"year"`
	Month  int `json:"month"`  // 1-12
	Day    int `json:"day"`
	Hour   int `json:"hour"`   // 0-23
	Minute int `json:"minute"`
}

// String formats the parts as M/D/YYYY H:MM for display.
func (p Parts) String() string {
	return fmt.Sprintf("%d/%d/%d %d:%02d", p.Month, p.Day, p.Year, p.Hour, p.Minute)
}

var datePattern = regexp.MustCompile(`(?i)(\w+)\s+(\d+),\s+(\d+)\s+(\d+):(\d+)\s+(am|pm)`)

var months = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// Parse converts a timeline caption into date parts.
//
// Conversion:
//  1. Match the six components; no match returns nil
//  2. Look up the month abbreviation; unknown months return nil
//  3. Convert the hour from 12h to 24h (pm adds 12 unless 12, 12 am is 0)
//  4. Fold source hours that were already past 12 (see foldMalformedHour)
//
// Parse never panics; malformed numbers return nil.
func Parse(text string) *Parts {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	month, ok := months[m[1]]
	if !ok {
		return nil
	}

	nums := make([]int, 4)
	for i, s := range []string{m[2], m[3], m[4], m[5]} {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		nums[i] = n
	}
	day, year, rawHour, minute := nums[0], nums[1], nums[2], nums[3]

	hour := rawHour
	switch strings.ToLower(m[6]) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	return &Parts{
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   foldMalformedHour(rawHour, hour),
		Minute: minute,
	}
}

// foldMalformedHour compensates for upstream captions that are already in
// 24-hour form but still carry an am/pm suffix ("13:02 pm", "14:05 am").
// Such hours come out of the 12h conversion past 12 and get 12 taken off.
// This is a source-data workaround, not a time-zone rule.
func foldMalformedHour(rawHour, hour int) int {
	if rawHour > 12 && hour > 12 {
		return hour - 12
	}
	return hour
}
