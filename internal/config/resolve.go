package config

import (
	"time"

	"golang.org/x/text/language"

	appLog "schedview/internal/log"
)

// Location resolves Timezone, falling back to time.Local when the name is
// empty or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Language resolves Locale for collation, falling back to English.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		appLog.Warn("unknown locale; using en", "locale", c.Locale)
		return language.English
	}
	return tag
}

// Window returns the [now-backfill, now+horizon] expansion window.
func (c *Config) Window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -c.BackfillDays), now.AddDate(0, 0, c.HorizonDays)
}
