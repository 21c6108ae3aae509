package mailfilter

import "testing"

func testMetadata() Metadata {
	return Metadata{
		Provider: ProviderGmail,
		Subject:  "Test Subject",
		From:     "test@example.com",
		To:       []string{"recipient@example.com"},
		Headers:  map[string]string{},
	}
}

func TestProviderLabelDetection(t *testing.T) {
	filter := NewDefaultFilter(0.8, nil, nil)

	spamMeta := testMetadata()
	spamMeta.Labels = []string{"SPAM"}
	v := filter.Evaluate(spamMeta)
	if !v.IsSpam || v.Score != 1.0 {
		t.Errorf("spam label: got %+v", v)
	}

	suspiciousMeta := testMetadata()
	suspiciousMeta.Labels = []string{"PROMOTIONS"}
	v = filter.Evaluate(suspiciousMeta)
	if !v.IsSpam || v.Score < 0.6 {
		t.Errorf("suspicious label: got %+v", v)
	}
}

func TestAllowlistDenylist(t *testing.T) {
	filter := NewDefaultFilter(0.8, []string{"@trusted.com"}, []string{"@spam.com"})

	allowed := testMetadata()
	allowed.From = "user@trusted.com"
	v := filter.Evaluate(allowed)
	if v.IsSpam {
		t.Errorf("expected allowlisted sender to pass, got %+v", v)
	}

	denied := testMetadata()
	denied.From = "user@spam.com"
	v = filter.Evaluate(denied)
	if !v.IsSpam || v.Score != 1.0 {
		t.Errorf("expected denylisted sender to be spam, got %+v", v)
	}
}

func TestSubjectAnalysis(t *testing.T) {
	filter := NewDefaultFilter(0.8, nil, nil)

	urgent := testMetadata()
	urgent.Subject = "URGENT: VERIFY YOUR ACCOUNT NOW!!!"
	v := filter.Evaluate(urgent)
	if !v.IsSpam {
		t.Errorf("expected urgent subject to be flagged spam, got %+v", v)
	}

	normal := testMetadata()
	normal.Subject = "Team meeting notes"
	v = filter.Evaluate(normal)
	if v.IsSpam {
		t.Errorf("expected normal subject to pass, got %+v", v)
	}
}

func TestAttachmentAnalysis(t *testing.T) {
	filter := NewDefaultFilter(0.8, nil, nil)

	suspicious := testMetadata()
	suspicious.HasAttachments = true
	suspicious.AttachmentExtensions = []string{"exe"}
	v := filter.Evaluate(suspicious)
	if !v.IsSpam {
		t.Errorf("expected exe attachment to be flagged spam, got %+v", v)
	}

	normal := testMetadata()
	normal.HasAttachments = true
	normal.AttachmentExtensions = []string{"pdf"}
	v = filter.Evaluate(normal)
	if v.IsSpam {
		t.Errorf("expected pdf attachment to pass, got %+v", v)
	}
}

func TestProviderSpecificHeuristics(t *testing.T) {
	filter := NewDefaultFilter(0.8, nil, nil)
	suspiciousContent := "URGENT: Claim your prize now!!!"

	gmail := testMetadata()
	gmail.Provider = ProviderGmail
	gmail.Subject = suspiciousContent
	gmailVerdict := filter.Evaluate(gmail)

	unknown := testMetadata()
	unknown.Provider = Provider("unknown-provider")
	unknown.Subject = suspiciousContent
	unknownVerdict := filter.Evaluate(unknown)

	if unknownVerdict.Score <= gmailVerdict.Score {
		t.Errorf("expected unknown provider score (%.2f) > gmail score (%.2f)", unknownVerdict.Score, gmailVerdict.Score)
	}
}

func TestThresholdConfiguration(t *testing.T) {
	meta := testMetadata()
	meta.Subject = "Urgent action required"

	low := NewDefaultFilter(0.3, nil, nil)
	if v := low.Evaluate(meta); !v.IsSpam {
		t.Errorf("expected low threshold to flag spam, got %+v", v)
	}

	high := NewDefaultFilter(0.9, nil, nil)
	if v := high.Evaluate(meta); v.IsSpam {
		t.Errorf("expected high threshold to pass, got %+v", v)
	}
}

func TestProviderFromSlug(t *testing.T) {
	tests := map[string]Provider{
		"gmail":           ProviderGmail,
		"GMAIL":           ProviderGmail,
		"zoho-mail":       ProviderZohoMail,
		"outlook":         ProviderOutlook,
		"custom-provider": Provider("custom-provider"),
	}
	for slug, want := range tests {
		if got := ProviderFromSlug(slug); got != want {
			t.Errorf("ProviderFromSlug(%q) = %q, want %q", slug, got, want)
		}
	}
}
