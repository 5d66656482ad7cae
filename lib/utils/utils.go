package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// isoDate is the calendar date layout used everywhere a date keys a record.
const isoDate = "2006-01-02"

// sanitizer strips all markup from user-submitted journal text.
var sanitizer = bluemonday.StrictPolicy()

// FormatDate renders t as an ISO calendar date string.
func FormatDate(t time.Time) string {
	return t.Format(isoDate)
}

// ParseDate parses an ISO calendar date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(isoDate, s)
}

// ValidDate reports whether s is a valid ISO calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(isoDate, s)
	return err == nil
}

// Sanitize cleans user-submitted text down to plain content before storage.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// ValidateEmail takes an email string as input and returns a boolean indicating whether the input is a valid email address.
func ValidateEmail(email string) bool {
	const emailPattern = `^(?i)[a-z0-9._%+\-]+@(?:[a-z0-9\-]+\.)+[a-z]{2,}$`
	matched, err := regexp.MatchString(emailPattern, email)
	return err == nil && matched
}

// PrintError prints an error message inside a banner, for CLI use.
func PrintError(message string) {
	message = "ERROR: " + message
	bannerChar := "="
	bannerLength := len(message) + 4
	bannerLine := strings.Repeat(bannerChar, bannerLength)

	fmt.Println(bannerLine)
	fmt.Printf("%s %s %s\n", bannerChar, message, bannerChar)
	fmt.Println(bannerLine)
	fmt.Println()
}
