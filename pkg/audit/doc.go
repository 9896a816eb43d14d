// Package audit maintains the operate-log trail: who changed what, from
// where, and when. The middleware records every successful mutation on
// the API surface; the auth handlers record logins and logouts
// themselves. Cleanup enforces the retention window.
package audit
