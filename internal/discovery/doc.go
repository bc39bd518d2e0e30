// Package discovery runs project discovery over a batch of documents.
//
// A run has three phases:
//
//  1. Analysis. Signal detection, entity extraction and embedding lookup run
//     per document on a bounded worker pool. These steps share no state.
//  2. Planning. After every document is analyzed, documents are clustered
//     and scored into candidates. Full runs plan the whole batch; incremental
//     runs first attach documents to existing candidates (see package changes).
//  3. Commit. Everything the run produced is written in one transaction. A
//     run that cannot commit is abandoned and leaves nothing visible.
//
// Collaborator outages never fail a run. A document without an embedding is
// clustered by name token, and a failed entity recognizer falls back to the
// built-in heuristics. Each degradation is reported in the RunResult.
package discovery
