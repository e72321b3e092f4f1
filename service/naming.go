package service

import (
	"fmt"
	"strconv"
	"strings"

	"tempvoice/models"
)

// BaseName computes the display name for a new channel before disambiguation.
// Gaming channels format the game label through the guild's template; every
// other purpose uses the configured general name.
func BaseName(settings models.GuildConfigSettings, purpose, label string) string {
	switch purpose {
	case models.PurposeGaming:
		template := settings.GamingNameTemplate
		if template == "" {
			template = models.DefaultGamingNameTemplate
		}
		label = strings.TrimSpace(label)
		if label == "" {
			label = "Unknown"
		}
		return fmt.Sprintf(template, label)
	default:
		name := settings.GeneralChannelName
		if name == "" {
			name = models.DefaultGeneralChannelName
		}
		return name
	}
}

// UniqueName disambiguates base against the existing sibling names by
// appending the smallest unused positive integer suffix. Suffix 1 renders as
// the bare base, so deleting a suffixed sibling frees its number for reuse.
func UniqueName(base string, existing []string) string {
	used := make(map[int]bool)
	for _, name := range existing {
		if name == base {
			used[1] = true
			continue
		}
		if !strings.HasPrefix(name, base) {
			continue
		}
		if n, err := strconv.Atoi(name[len(base):]); err == nil && n > 1 {
			used[n] = true
		}
	}

	n := 1
	for used[n] {
		n++
	}
	if n == 1 {
		return base
	}
	return base + strconv.Itoa(n)
}
