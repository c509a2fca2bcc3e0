// Package canvas provides the rate-limited fetch client for course
// management APIs.
//
// This package handles:
//   - Resolving opaque source refs against the API base URL
//   - Bearer token authentication
//   - A shared rate budget: bounded parallelism plus minimum spacing
//     between the start of consecutive fetches
//   - Classifying fetch failures as permanent or transient
//
// # Usage
//
//	client, err := canvas.NewClient(canvas.Options{
//	    BaseURL:     "https://canvas.example.edu",
//	    Token:       token,
//	    MaxParallel: 4,
//	    MinInterval: 100 * time.Millisecond,
//	})
//
//	body, size, err := client.Fetch(ctx, "/files/1042/download")
//	if err != nil {
//	    // canvas.IsPermanent(err) decides whether a retry can help
//	}
//	defer body.Close() // releases the budget slot
//
// # Rate Budget
//
// All fetches of a client share one [Budget]. Fetch blocks until a
// parallelism slot is free and the spacing interval has passed; the slot is
// held until the response body is closed. The budget serializes issuance,
// so even simultaneous callers start their requests at least the interval
// apart.
//
// # Classification
//
// Missing resources (404), failed authentication or authorization (401,
// 403) and malformed refs or responses are permanent: [IsPermanent]
// returns true and callers should not retry. Timeouts, rate limiting
// (429), server errors (5xx) and connection failures are transient.
package canvas
