// Package email delivers the messages that carry reset links and verification
// codes.
//
// [Sender] is the single seam the Engine calls. [PostmarkSender] sends
// through Postmark's transactional API, [LogSender] records only recipient
// and subject for development, and [DiscardSender] drops everything.
// Message bodies are rendered with templ components by [ResetMessage] and
// [VerificationMessage].
//
// Bodies contain plaintext secrets. No sender in this package logs or stores
// a body.
package email
