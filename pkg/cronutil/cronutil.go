// Package cronutil wraps robfig/cron/v3 expression parsing behind the
// single operation Runinator's scheduler needs: find the next UTC
// instant an expression fires after a given time.
package cronutil

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts the optional-seconds six-field form ("0 0 2 * * *") in
// addition to the standard five-field crontab form, matching what
// operators typing a schedule into the metadata API are most likely to
// expect from a task scheduler named after cron.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// FindNext parses expr and returns the next UTC instant it fires
// strictly after now. now is expected to already be in UTC; the
// returned time always is.
func FindNext(expr string, now time.Time) (time.Time, error) {
	schedule, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("cronutil: parse %q: %w", expr, err)
	}
	return schedule.Next(now.UTC()).UTC(), nil
}

// Validate reports whether expr is a well-formed cron expression without
// computing a next occurrence. Used by the metadata API to reject
// malformed task definitions on create/update.
func Validate(expr string) error {
	_, err := parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("cronutil: parse %q: %w", expr, err)
	}
	return nil
}
