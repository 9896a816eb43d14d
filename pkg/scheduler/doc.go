// Package scheduler runs the periodic background jobs on a cron loop:
// the due-maintenance scan that reminds the responsible user when a
// machine's next service date has passed, and the audit-trail trim that
// enforces the operate-log retention window.
package scheduler
