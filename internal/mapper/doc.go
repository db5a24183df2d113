// Package mapper turns media index rows into picker records.
//
// For each row of a primary files cursor the mapper:
//
//  1. drops animated images (gif) larger than 20 MiB
//  2. drops rows whose mime type is in the caller's exclusion list
//  3. copies the shared fields from the row
//  4. for videos, looks the row up in the video collection for its
//     duration (whole seconds) and dimensions
//  5. for everything else, copies width and height from the row
//
// A Record is the single output type. Callers that need the generic
// key/value shape use Record.ToMap or Maps, which derive it from the record.
//
// Per-row failures follow the FailurePolicy: Lenient logs and skips the
// row, Strict aborts. Every cursor the mapper touches is closed before Map
// returns.
package mapper
