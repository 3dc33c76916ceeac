// Package walker enumerates the indexable files of a repository.
//
// A walk prunes ignored directories, skips hidden entries, and filters out
// binary files and files over the configured size limit. Ignore patterns
// come from three merged sources: built-in defaults, the repository's
// .askrepoignore file, and patterns supplied by the caller.
//
// # Basic Usage
//
//	w := walker.New(logger, nil, 2<<20)
//	files, err := w.Walk("/path/to/repo")
//	if err != nil {
//	    return err
//	}
//
//	for _, f := range files {
//	    fmt.Printf("%s (%s, %d bytes)\n", f.RelPath, f.Language(), f.SizeBytes)
//	}
//
// Traversal errors are logged and skipped rather than failing the walk.
// Only a missing or non-directory root returns an error. Files that fail
// the binary sniff read are still yielded so the caller can record the
// failure when it reads them.
package walker
