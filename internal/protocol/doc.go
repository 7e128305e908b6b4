// Package protocol defines the line-delimited JSON wire format spoken with
// the bio-engine worker process and the framing needed to recover it from a
// raw byte stream.
//
// Outbound traffic is one Request object per line; inbound traffic is one
// Response envelope per line, though a single transport chunk may carry
// several envelopes or a fragment of one. The Framer reassembles complete
// lines across chunk boundaries, and ParseResponse decodes a single line in
// isolation so one malformed document never poisons its neighbours.
//
// Payload fields beyond the envelope header are deliberately opaque here;
// callers decode them through Response.DecodePayload with their own types.
package protocol
