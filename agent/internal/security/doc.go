// Package security inspects the TLS certificate served by a monitored page.
// The check command uses it to flag pages whose certificate is expired,
// close to expiry or not trusted, any of which will eventually surface as
// fetch failures during regular runs.
package security
