// Package cloudpath talks to the public administrative API of the target
// identity system. It obtains session tokens and creates DPSK credentials
// inside a configured pool, returning raw responses without interpreting them.
package cloudpath
