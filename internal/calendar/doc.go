// Package calendar implements the multi-calendar aggregation core.
//
// It provides timezone-correct day and week window calculation, a raw REST
// client for the Google Calendar v3 calendarList and events endpoints, and an
// aggregator that fans out one event fetch per readable calendar, tolerates
// per-calendar failures, and merges the results into a single sequence sorted
// by effective start.
package calendar
