//go:build !brushd_debug

package brushd

const debugChecks = false
