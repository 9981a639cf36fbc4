// Doctech is a voice command router for a document viewer. It turns spoken
// or typed requests into navigation plans, speaks a confirmation and
// resolves figure and document lookups against a semantic search index.
//
// Usage:
//
//	doctech serve --config /path/to/doctech.yaml
//	doctech ask "show me the wiring diagram" --page 3
package main

func main() {
	Execute()
}
