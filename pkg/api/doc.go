/*
Package api wraps the ComfyUI server's HTTP and websocket surface: queueing a
workflow, fetching the history record and image bytes, uploading input images,
and consuming the push-notification stream of execution updates.

The wrappers are deliberately thin: requests go out as-is, non-success HTTP
statuses come back verbatim as *StatusError, and no retry policy exists at
this layer. The interesting behavior lives above, in the execution tracker.
*/
package api
