// Package cli defines the flag configuration and parsing for the demo server
// binary, including flags for the listen address, static assets, identity
// provider, and platform API endpoint.
package cli
