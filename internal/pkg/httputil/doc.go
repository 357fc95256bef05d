// Package httputil implements the JSON response envelope shared by every
// API endpoint: {"success": bool, "data"|"count": ..., "error": ...,
// "details": ...}. Handlers go through these helpers rather than writing
// to the ResponseWriter directly, which keeps status mapping and error
// sanitization in one place.
package httputil
