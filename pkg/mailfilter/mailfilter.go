// Package mailfilter provides the spam-filtering abstraction mail
// connectors use to drop malicious messages before they reach the signal
// pipeline, while allowing legitimate mail through (supplemented feature;
// not part of the core component budget).
package mailfilter

import "strings"

// Provider identifies the mail provider that delivered a message.
type Provider string

const (
	ProviderGmail    Provider = "gmail"
	ProviderZohoMail Provider = "zoho-mail"
	ProviderOutlook  Provider = "outlook"
)

// ProviderFromSlug maps a connector provider slug to a Provider, leaving
// unrecognized slugs as-is for the "other" heuristic path.
func ProviderFromSlug(slug string) Provider {
	switch strings.ToLower(slug) {
	case "gmail":
		return ProviderGmail
	case "zoho-mail":
		return ProviderZohoMail
	case "outlook":
		return ProviderOutlook
	default:
		return Provider(slug)
	}
}

// Metadata carries what the filter needs to evaluate a single message.
type Metadata struct {
	Provider             Provider
	Labels               []string
	Subject              string
	Headers              map[string]string
	From                 string
	To                   []string
	HasAttachments       bool
	AttachmentExtensions []string
}

// Verdict is the outcome of evaluating a message.
type Verdict struct {
	IsSpam bool
	Score  float64
	Reason string
}

func notSpam(reason string) Verdict          { return Verdict{IsSpam: false, Score: 0, Reason: reason} }
func spam(score float64, reason string) Verdict { return Verdict{IsSpam: true, Score: score, Reason: reason} }
func definiteSpam(reason string) Verdict     { return Verdict{IsSpam: true, Score: 1.0, Reason: reason} }

// SpamFilter evaluates a message and returns a spam verdict.
type SpamFilter interface {
	Evaluate(meta Metadata) Verdict
}
