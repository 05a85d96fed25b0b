// Package auth implements the tessctl authentication core: the OAuth
// authorization-code-with-PKCE flow against the Tessera identity provider,
// transparent refresh with a single-flight guarantee, and write-through
// persistence of credentials via the store package.
package auth
