// Package vlm provides a resilient client for an OpenAI-compatible
// vision-language chat completion API.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.DescribeSingle: describe one frame with a text instruction.
// Client.DescribePair: describe the change between two consecutive frames.
// Client.HealthCheck: verify API key and model availability.
//
// Images are re-encoded as JPEG and embedded inline as base64 data URLs in a
// single user message alongside the instruction.
//
// # Retry Behaviour
//
// Every call routes through one retry loop driven by a RetryPolicy. Rate
// limit responses (HTTP 429) back off exponentially (base * 2^attempt);
// other transient faults (HTTP 408/5xx, network errors, empty completions)
// wait a fixed delay. Both share one attempt budget (5 by default). When the
// budget is spent the call fails with services.ErrServiceExhausted.
// Non-transient failures (other 4xx, invalid input) are returned immediately.
// Context cancellation aborts retries immediately.
package vlm
