// Package providers implements the completion client used to request review
// output from LLM backends.
//
// Every backend (OpenAI, Gemini, and OpenAI-compatible local servers such as
// Ollama) is asked for strict JSON output and shares one retry loop. Failures
// are classified: 429 and 5xx responses are [RetryableError]s and are retried
// with rate-limit-aware backoff up to a fixed attempt budget, after which a
// [RetriesExhaustedError] is returned. An exhausted quota ([FatalQuotaError])
// and every other non-success status ([FatalAPIError]) fail immediately.
//
// API keys are read from OPENAI_API_KEY and GEMINI_API_KEY (or GOOGLE_API_KEY).
package providers
