// Package remote provides RemoteCartService adapters: a JSON/HTTP client for
// a real cart endpoint, and a scripted in-process service for demos and tests.
package remote
