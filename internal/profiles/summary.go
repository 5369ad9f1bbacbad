package profiles

import (
	"fmt"
	"time"

	"github.com/ScottN-PV/cc-launcher/internal/config"
)

// Summary returns a one-line description such as "3 servers, used 2h ago".
func Summary(p config.Profile, now time.Time) string {
	n := len(p.EnabledServerIDs)
	s := fmt.Sprintf("%d %s", n, pluralize("server", n))
	if p.LastUsed == nil {
		return s + ", never used"
	}
	return s + ", used " + Ago(*p.LastUsed, now)
}

// Ago formats the age of t in the largest whole unit.
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}

func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
