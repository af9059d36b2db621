// Package util has string helpers for config values and log output:
// byte sizes, secret masking and rune-safe truncation.
package util
