// Package testutil provides shared test doubles: an in-memory measurement
// store that counts its calls, a statistics spy, and failing cache and
// handler implementations for degradation tests.
package testutil
