// Package embedder generates vector embeddings for chunk text using the
// OpenAI embeddings API, with batching, rate pacing, retries, and an
// in-memory FIFO cache.
//
// # Basic Usage
//
//	emb := embedder.NewOpenAI(apiKey, "text-embedding-3-large", 100, logger)
//
//	results, err := emb.EmbedTexts(ctx, texts)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("vector dimension: %d\n", results[0].Dimension())
//
// Texts are sent in batches of the configured size, one batch per 100ms,
// and failed batches are retried with exponential backoff. Rate-limit,
// server, and network failures surface as transient errors; other API
// errors pass through unchanged.
//
// # Caching
//
// Cache stores results keyed by exact chunk text, so any edit to a chunk
// is a miss. Eviction is first-in-first-out: at capacity, inserting a new
// key drops the oldest inserted entry no matter how recently it was read.
//
//	cache := embedder.NewCache(10000)
//
//	if result, ok := cache.Get(text); ok {
//	    return result
//	}
//	result, err := emb.EmbedSingle(ctx, text)
//	if err == nil {
//	    cache.Put(text, result)
//	}
//
// # Usage Accounting
//
// The embedder accumulates prompt tokens across all batches. Usage returns
// the running total with an estimated USD cost:
//
//	stats := emb.Usage()
//	fmt.Printf("%d tokens, $%.4f\n", stats.TotalTokensUsed, stats.EstimatedCostUSD)
package embedder
