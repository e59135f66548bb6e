// Package searcher runs one query across every per-shape index and merges
// the scored hits into a single bounded, globally ranked list.
//
// # Architecture
//
//	              Store.Indexes() snapshot
//	    ┌──────────────┬──────────────┬──────────────┐
//	    ▼              ▼              ▼              ▼
//	Execute(fp1)   Execute(fp2)   Execute(fp3)    ...     (errgroup, bounded)
//	    └──────────────┴──────┬───────┴──────────────┘
//	                          ▼
//	                  Collector (top K)
//	                          ▼
//	             Fetch + render per fingerprint
//
// Ranking is score descending, then fingerprint, segment and doc ascending,
// so equal-score hits always come back in the same order.
//
// # Usage
//
//	s, _ := searcher.New(st, searcher.WithMaxConcurrency(4))
//	results, err := s.Search(ctx, "msg:hello AND props.id:>=2", 10)
//	for _, r := range results {
//	    if r.Err != nil {
//	        continue // this hit could not be resolved
//	    }
//	    fmt.Println(r.Document.Fields)
//	}
//
// # Thread Safety
//
// A Searcher keeps no state between calls and is safe for concurrent use.
package searcher
