// Package responder simulates the assistant side of a conversation:
// given a sent user message it picks reply text, either by classifying
// the attachments or uniformly from a canned corpus.
package responder

import (
	"math/rand/v2"
	"time"

	"github.com/chatflow-ai/chatflow/internal/chat"
)

// Fixed replies for sends that carry attachments.
const (
	ReplyMixed     = "I can see you've shared both images and documents. I can help you analyze the content, extract information, or answer questions about these files."
	ReplyImages    = "I can see the images you've shared. I can help you analyze them, describe what I see, or answer questions about the visual content."
	ReplyDocuments = "I've received your documents. I can help you analyze the content, summarize information, or answer questions about the files you've shared."
)

// Corpus holds the canned replies used when a send has no attachments.
var Corpus = []string{
	"I'm an AI assistant designed to help with your questions. How can I assist you today?",
	"That's an interesting question. Based on my knowledge, I'd suggest considering a few different approaches.",
	"I understand what you're asking. Many people have found success with this method.",
	"Thanks for sharing that. I can provide more information about this topic if you'd like.",
	"I'm glad you asked about that. Here's what I know on the subject...",
	"That's a great point. From my perspective, there are several factors to consider.",
	"I'd be happy to help with that. Let me explain how this works.",
	"Based on the latest research, the recommended approach would be to...",
	"I've analyzed your question and here are my thoughts on the matter.",
	"That's a common question. The short answer is yes, but let me elaborate...",
}

// Responder selects assistant replies after a fixed latency.
type Responder struct {
	delay time.Duration
}

// New creates a responder with the given simulated latency.
func New(delay time.Duration) *Responder {
	return &Responder{delay: delay}
}

// Delay returns the simulated latency before a reply is delivered.
func (r *Responder) Delay() time.Duration {
	return r.delay
}

// ReplyTo selects the reply text for a just-sent user message. Sends with
// attachments get one of three fixed replies depending on whether they mix
// images and other files; plain text sends draw uniformly from the corpus.
// Every send yields exactly one reply.
func (r *Responder) ReplyTo(msg chat.Message) string {
	if len(msg.Files) > 0 {
		hasImages, hasOther := false, false
		for _, f := range msg.Files {
			if f.IsImage() {
				hasImages = true
			} else {
				hasOther = true
			}
		}
		switch {
		case hasImages && hasOther:
			return ReplyMixed
		case hasImages:
			return ReplyImages
		default:
			return ReplyDocuments
		}
	}
	return Corpus[rand.IntN(len(Corpus))]
}
