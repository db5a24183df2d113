// Package query plans media index queries.
//
// Plan turns a Request (bucket, sort direction, optional pagination) into a
// Query addressed by content URI, in the shape the media index expects:
//
//	q := query.Plan(query.Request{BucketID: "7", Limit: 50, Offset: 0})
//	// q.URI           = "content://media/external/file"
//	// q.Selection     = "(media_type = 1 OR media_type = 3) AND bucket_id = ?"
//	// q.SelectionArgs = ["7"]
//	// q.SortOrder     = "_id DESC LIMIT 50 OFFSET 0"
//
// The bucket id is always passed as a bound argument. The "0" bucket means
// every album, in which case no bucket predicate is added.
package query
