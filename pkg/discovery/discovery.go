// Package discovery resolves the backend base URL from the Consul catalog
// when no explicit API_URL is configured. Real lookups require the consul
// build tag; default builds get a stub that always falls through.
package discovery

// BackendService is the Consul service name the backend registers under.
const BackendService = "command-center-backend"
