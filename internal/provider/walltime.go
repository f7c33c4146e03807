package provider

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseWalltime parses an HH:MM:SS walltime. Hours may exceed 24.
func ParseWalltime(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("walltime %q: want HH:MM:SS", s)
	}

	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("walltime %q: invalid field %q", s, p)
		}
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("walltime %q: field %q out of range", s, p)
		}
		fields[i] = n
	}

	d := time.Duration(fields[0])*time.Hour +
		time.Duration(fields[1])*time.Minute +
		time.Duration(fields[2])*time.Second
	if d <= 0 {
		return 0, fmt.Errorf("walltime %q: must be positive", s)
	}
	return d, nil
}

// WalltimeMinutes returns d in whole minutes, the unit Slurm's --time takes.
// Seconds are dropped; anything under a minute becomes 1.
func WalltimeMinutes(d time.Duration) int {
	m := int(d / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

// FormatWalltime renders d as HH:MM:SS.
func FormatWalltime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}
