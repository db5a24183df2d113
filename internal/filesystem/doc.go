/*
Package filesystem wraps os.Stat and os.Open with retries for NFS stale file
handle errors (ESTALE).

Media libraries are often mounted over NFS. A file handle can go stale when
the server side changes underneath a running index; the operation usually
succeeds when repeated. Other errors are returned immediately.

	f, err := filesystem.Open(ctx, path, filesystem.DefaultRetryConfig())
	if err != nil {
		return err
	}
	defer f.Close()

Retries back off exponentially from InitialBackoff to MaxBackoff and stop
early when the context is done. Retry outcomes are exported as
media_picker_filesystem_retries_total and
media_picker_filesystem_stale_errors_total.
*/
package filesystem
