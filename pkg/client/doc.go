// Package client implements the HTTP client for the Tessera platform
// API, with typed services for applications and analysis runs and a
// token source hook so requests always carry a fresh bearer token.
package client
