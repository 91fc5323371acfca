// Package protocol implements the discovery wire protocol: the request and
// response envelopes and the framing of a response read from a raw socket.
//
// # Framing
//
// The service sends one JSON document per request with no length prefix or
// delimiter. The Framer keeps reading until Complete reports balanced
// braces and brackets outside of string literals, or until the remote end
// closes the connection.
//
//	framer := protocol.NewFramer(protocol.WithBlockSize(4096))
//	raw, err := framer.ReadMessage(conn)
//	resp, err := protocol.DecodeResponse(raw)
//
// # Wire format
//
//	request:  {"type":"scrape_request","url":"<string>"}
//	response: {"success":<bool>,"content":{"classes":[...],"other_datas":[...]}}
//
// Each use of the framer handles exactly one request/response exchange.
// Back-to-back messages on the same read are not split.
package protocol
