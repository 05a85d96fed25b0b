// Package demo implements the demo web server (Gin-based), serving the
// built front-end, a small config endpoint for the SPA, and an /api group
// protected by JWKS bearer-token validation that proxies the Tessera
// platform API with the caller's token.
package demo
