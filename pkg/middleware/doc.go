// Package middleware holds the authentication gate that sits in front of
// every API route. The gate resolves bearer tokens into identities and
// leaves enforcement to the per-route guards in pkg/api, mirroring a
// filter chain that annotates but never rejects.
package middleware
