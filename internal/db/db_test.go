package db

import "testing"

func TestValidTimezone(t *testing.T) {
	valid := []string{"UTC", "America/New_York", "Asia/Kolkata", "+05:30", "-08:00", "Etc/GMT-2"}
	for _, tz := range valid {
		if !validTimezone(tz) {
			t.Fatalf("%q rejected", tz)
		}
	}
	invalid := []string{
		"UTC'; DROP TABLE projects; --",
		"America/New York",
		"UTC\n",
		"tz\"name",
		string(make([]byte, 65)),
	}
	for _, tz := range invalid {
		if validTimezone(tz) {
			t.Fatalf("%q accepted", tz)
		}
	}
}
