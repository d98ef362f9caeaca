package constants

import "time"

// Test Constants
//
// IMPORTANT: These constants are for testing only. DO NOT use in production code.

// Integration Test Timeout Constants
const (
	// TestServerStartupTimeout bounds the wait for a listener in integration tests
	TestServerStartupTimeout = 5 * time.Second

	// TestReadTimeout is the read deadline applied by test clients
	TestReadTimeout = 2 * time.Second
)

// Concurrency Test Constants
const (
	// TestConcurrentClientsSmall is the number of concurrent clients for small load tests
	TestConcurrentClientsSmall = 10

	// TestConcurrentClientsLarge is the number of concurrent clients for large load tests
	TestConcurrentClientsLarge = 20
)

// Test Fixture Constants
const (
	// TestAccountID is the account id used by handler fixtures
	TestAccountID = 1000

	// TestClientAddress is 127.0.0.1 in client address form
	TestClientAddress = 0x7F000001
)
