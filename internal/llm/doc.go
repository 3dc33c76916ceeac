// Package llm wraps the OpenAI chat completions API for the retrieval and
// compression agents.
//
// Complete issues one call with retry and backoff, then reports the text
// plus token usage and an estimated USD cost. Cost comes from a fixed
// per-model price table; models missing from the table are priced as
// gpt-4o, and an 80/20 input/output split is assumed because only total
// token counts are tracked.
package llm
