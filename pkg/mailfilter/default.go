package mailfilter

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultFilter is a rule-based spam filter combining provider labels,
// subject/keyword heuristics, attachment analysis, and header analysis,
// gated by an allowlist/denylist and a configurable threshold.
type DefaultFilter struct {
	Threshold float64
	Allowlist []string
	Denylist  []string
}

// NewDefaultFilter builds a DefaultFilter, clamping threshold to [0, 1].
func NewDefaultFilter(threshold float64, allowlist, denylist []string) *DefaultFilter {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	return &DefaultFilter{Threshold: threshold, Allowlist: allowlist, Denylist: denylist}
}

func matchesList(list []string, email string) bool {
	emailLower := strings.ToLower(email)
	for _, entry := range list {
		entryLower := strings.ToLower(entry)
		if emailLower == entryLower {
			return true
		}
		if strings.HasPrefix(entryLower, "@") && strings.HasSuffix(emailLower, entryLower) {
			return true
		}
	}
	return false
}

func (f *DefaultFilter) isAllowed(email string) bool { return matchesList(f.Allowlist, email) }
func (f *DefaultFilter) isDenied(email string) bool  { return matchesList(f.Denylist, email) }

func (f *DefaultFilter) checkSenderLists(meta Metadata) (Verdict, bool) {
	if meta.From == "" {
		return Verdict{}, false
	}
	if f.isDenied(meta.From) {
		return definiteSpam(fmt.Sprintf("sender in denylist: %s", meta.From)), true
	}
	if f.isAllowed(meta.From) {
		return notSpam(fmt.Sprintf("sender in allowlist: %s", meta.From)), true
	}
	return Verdict{}, false
}

var highConfidenceSpamLabels = []string{"spam", "junk", "trash", "bulk"}
var suspiciousLabels = []string{"promotions", "social", "updates", "forums"}

func (f *DefaultFilter) checkProviderLabels(meta Metadata) (Verdict, bool) {
	labels := make(map[string]bool, len(meta.Labels))
	for _, l := range meta.Labels {
		labels[strings.ToLower(l)] = true
	}

	for _, label := range highConfidenceSpamLabels {
		if labels[label] {
			return definiteSpam(fmt.Sprintf("provider marked as spam (label: %s)", label)), true
		}
	}
	for _, label := range suspiciousLabels {
		if labels[label] {
			return spam(0.6, fmt.Sprintf("suspicious provider label: %s", label)), true
		}
	}
	return Verdict{}, false
}

var urgencyWords = []string{
	"urgent", "immediate", "action required", "verify now", "limited time",
	"expiring", "expires soon", "last chance", "don't miss", "act now",
}
var financialWords = []string{
	"congratulations", "winner", "lottery", "prize", "claim", "reward",
	"million", "thousand", "cash", "payment", "transfer", "inheritance",
}
var phishingWords = []string{
	"verify", "confirm", "update", "suspend", "locked", "compromised",
	"security", "alert", "unusual", "activity", "account", "click here",
}

func (f *DefaultFilter) analyzeSubject(subject string) float64 {
	subjectLower := strings.ToLower(subject)
	var score float64

	for _, w := range urgencyWords {
		if strings.Contains(subjectLower, w) {
			score += 0.15
		}
	}
	for _, w := range financialWords {
		if strings.Contains(subjectLower, w) {
			score += 0.2
		}
	}
	for _, w := range phishingWords {
		if strings.Contains(subjectLower, w) {
			score += 0.18
		}
	}

	runes := []rune(subject)
	length := len(runes)
	if length == 0 {
		length = 1
	}
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if float64(upper)/float64(length) > 0.5 {
		score += 0.25
	}

	bangs := strings.Count(subject, "!")
	if bangs > 2 {
		score += 0.1 * float64(bangs-2)
	}

	return min1(score)
}

var suspiciousExtensions = map[string]bool{
	"exe": true, "bat": true, "com": true, "pif": true, "scr": true, "vbs": true,
	"js": true, "jar": true, "app": true, "deb": true, "rpm": true, "dmg": true,
	"pkg": true, "msi": true, "msp": true, "reg": true, "inf": true, "sys": true, "dll": true,
}

func (f *DefaultFilter) analyzeAttachments(meta Metadata) float64 {
	if !meta.HasAttachments {
		return 0
	}
	var score float64
	for _, ext := range meta.AttachmentExtensions {
		extLower := strings.ToLower(ext)
		switch {
		case suspiciousExtensions[extLower]:
			score += 0.8
		case extLower == "zip" || extLower == "rar" || extLower == "7z":
			score += 0.3
		}
	}
	if len(meta.AttachmentExtensions) > 3 {
		score += 0.2
	}
	return min1(score)
}

func (f *DefaultFilter) analyzeHeaders(meta Metadata) float64 {
	var score float64
	headers := lowerKeys(meta.Headers)

	if _, ok := headers["received"]; !ok {
		score += 0.3
	}
	if _, ok := headers["date"]; !ok {
		score += 0.2
	}
	if authResults, ok := headers["authentication-results"]; ok && strings.Contains(strings.ToLower(authResults), "fail") {
		score += 0.5
	}
	if contentType, ok := headers["content-type"]; ok && strings.Contains(strings.ToLower(contentType), "text/html") && meta.Subject == "" {
		score += 0.1
	}

	return min1(score)
}

func (f *DefaultFilter) applyProviderHeuristics(meta Metadata, baseScore float64) float64 {
	switch meta.Provider {
	case ProviderGmail:
		return baseScore * 0.8
	case ProviderZohoMail:
		return baseScore * 0.85
	case ProviderOutlook:
		return baseScore * 0.8
	default:
		return baseScore
	}
}

// Evaluate implements SpamFilter.
func (f *DefaultFilter) Evaluate(meta Metadata) Verdict {
	if v, ok := f.checkSenderLists(meta); ok {
		return v
	}
	if v, ok := f.checkProviderLabels(meta); ok {
		return v
	}

	var score float64
	var reasons []string

	if meta.Subject != "" {
		subjectScore := f.analyzeSubject(meta.Subject)
		if subjectScore > 0.2 {
			score += subjectScore
			reasons = append(reasons, fmt.Sprintf("subject analysis: %.2f", subjectScore))
		}
	}

	attachmentScore := f.analyzeAttachments(meta)
	if attachmentScore > 0.1 {
		score += attachmentScore
		reasons = append(reasons, fmt.Sprintf("attachment analysis: %.2f", attachmentScore))
	}

	headerScore := f.analyzeHeaders(meta)
	if headerScore > 0.1 {
		score += headerScore
		reasons = append(reasons, fmt.Sprintf("header analysis: %.2f", headerScore))
	}

	score = f.applyProviderHeuristics(meta, score)
	score = min1(score)

	if score >= f.Threshold {
		reason := fmt.Sprintf("spam score %.2f exceeds threshold %.2f", score, f.Threshold)
		if len(reasons) > 0 {
			reason = fmt.Sprintf("spam score %.2f (threshold %.2f) - %s", score, f.Threshold, strings.Join(reasons, ", "))
		}
		return spam(score, reason)
	}

	reason := "message appears legitimate"
	if len(reasons) > 0 {
		reason = fmt.Sprintf("low spam score %.2f - %s", score, strings.Join(reasons, ", "))
	}
	return notSpam(reason)
}

func min1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
