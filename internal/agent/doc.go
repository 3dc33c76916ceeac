// Package agent implements the iterative retrieve-and-compress loop that
// answers questions about an indexed repository.
//
// A run is a sequence of retrieval turns followed by one compression turn.
// Each retrieval turn generates a search query from the question and the
// search history, runs a vector search, merges the hits into the working
// set, and asks the model whether the accumulated context can answer the
// question. Compression then condenses the chunks into a cited answer.
//
// # Basic Usage
//
//	w := agent.New(store, emb, client, settings, logger)
//
//	result, err := w.Query(ctx, "How is rate limiting implemented?", "myrepo", 5)
//	if err != nil {
//	    return err
//	}
//
//	fmt.Println(result.Answer)
//	fmt.Printf("stopped after %d iterations (%s), %d tokens\n",
//	    result.Metadata.Iterations,
//	    result.Metadata.StopReason,
//	    result.Metadata.TokensUsed)
//
// # Stop Conditions
//
// Retrieval ends at the first condition to hold, checked in this order
// before every turn:
//
//  1. sufficient_context: the self-evaluation judged the chunks adequate
//  2. max_iterations: the turn budget is spent
//  3. token_limit: accumulated tokens strictly exceed the retrieval budget
//
// The iteration cap bounds every run: compression is reached within at
// most MaxIterations retrieval turns no matter what the evaluator says.
//
// # State Ownership
//
// All run state lives in a single State value owned by the Workflow. Turn
// functions receive it by pointer, mutate it, and return; nothing aliases
// it concurrently.
//
// # Failure Handling
//
// Remote failures (chat completion, query embedding, vector search) abort
// the run after the client's retries are exhausted. A reply that fails to
// parse is not a remote failure: an unparseable evaluation falls back to a
// heuristic judgment, and an unparseable compression falls back to the
// raw reply text as the answer.
package agent
