// Package merge implements the k-way merge at the heart of the aggregator:
// it turns the independently paginated, individually sorted holdings
// streams of many catalog sources into one globally sorted, deduplicated
// output page without ever holding a full dataset in memory.
//
// A run proceeds in rounds:
//
//  1. Refill: every active source with an empty buffer is fetched in
//     parallel; the round waits for all fetches to settle. A failed fetch
//     drops that source for the rest of the request, nothing more.
//  2. Select: the minimal buffer-front holding under the request's
//     comparator wins; ties go to the earliest source in registry order.
//  3. Consume: the winner is popped and either appended to the page or,
//     when its identity key was already emitted, folded into the existing
//     record by summing copies.
//  4. Retire: a source drained past its last chunk leaves the pool.
//
// Rounds repeat until the page is full or the pool is empty. Because the
// refill barrier separates all I/O from all state mutation, the engine
// needs no locks.
//
// Correctness precondition: sources must return pages ordered per the
// requested sort spec. The engine never re-sorts within a source; an
// unsorted upstream yields an unspecified merge order but cannot crash
// the run.
package merge
