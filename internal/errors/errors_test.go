package errors

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingPublisher struct {
	accept bool
	count  atomic.Int32
}

func (p *countingPublisher) TryPublish(event any) bool {
	p.count.Add(1)
	return p.accept
}

type countingReporter struct {
	count atomic.Int32
}

func (r *countingReporter) ReportError(err *EnhancedError) { r.count.Add(1) }
func (r *countingReporter) IsEnabled() bool                { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)
	ClearEventPublisher()

	ee := New(fmt.Errorf("test error")).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}
	if ee.GetComponent() != ComponentUnknown {
		t.Errorf("Expected component 'unknown' in fast path, got '%s'", ee.GetComponent())
	}
	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic' in fast path, got '%s'", ee.Category)
	}
}

func TestBuilderKeepsExplicitFields(t *testing.T) {
	ee := Newf("adapter %s down", "hci0").
		Component("scanner").
		Category(CategoryScanner).
		Priority(PriorityHigh).
		Context("adapter", "hci0").
		Timing("ble_scan", 1500*time.Millisecond).
		Build()

	if ee.GetComponent() != "scanner" {
		t.Errorf("component = %q", ee.GetComponent())
	}
	if !IsCategory(ee, CategoryScanner) {
		t.Errorf("expected scanner category, got %s", ee.Category)
	}
	if ee.GetPriority() != PriorityHigh {
		t.Errorf("priority = %q", ee.GetPriority())
	}
	ctx := ee.GetContext()
	if ctx["adapter"] != "hci0" || ctx["duration_ms"] != int64(1500) || ctx["operation"] != "ble_scan" {
		t.Errorf("unexpected context %v", ctx)
	}
}

func TestUnknownPriorityFallsBackToMedium(t *testing.T) {
	ee := New(NewStd("x")).Priority("urgent").Build()
	if ee.GetPriority() != PriorityMedium {
		t.Errorf("priority = %q, want medium", ee.GetPriority())
	}
}

func TestWrappedSentinelIsReachable(t *testing.T) {
	sentinel := NewStd("sentinel")
	ee := Wrap(fmt.Errorf("outer: %w", sentinel)).Category(CategoryDatabase).Build()

	if !Is(ee, sentinel) {
		t.Error("expected sentinel to be found through EnhancedError")
	}
	if IsNotFound(ee) {
		t.Error("database error must not be reported as not-found")
	}
	if !IsNotFound(NotFoundError("network", "AA:BB")) {
		t.Error("NotFoundError should carry the not-found category")
	}
}

func TestEventBusPreferredOverReporter(t *testing.T) {
	reporter := &countingReporter{}
	publisher := &countingPublisher{accept: true}
	SetTelemetryReporter(reporter)
	SetEventPublisher(publisher)
	t.Cleanup(func() {
		SetTelemetryReporter(nil)
		ClearEventPublisher()
	})

	_ = New(NewStd("boom")).Component("test").Build()

	if publisher.count.Load() != 1 {
		t.Errorf("publisher calls = %d, want 1", publisher.count.Load())
	}
	if reporter.count.Load() != 0 {
		t.Errorf("reporter calls = %d, want 0", reporter.count.Load())
	}

	// A rejected publish falls back to direct reporting
	publisher.accept = false
	_ = New(NewStd("boom")).Component("test").Build()
	if reporter.count.Load() != 1 {
		t.Errorf("reporter calls = %d, want 1", reporter.count.Load())
	}
}

func TestDetectCategoryFromMessage(t *testing.T) {
	cases := map[string]ErrorCategory{
		"invalid IRK length":        CategoryResolver,
		"context deadline exceeded": CategoryTimeout,
		"dial tcp: refused":         CategoryNetwork,
		"open capture.jsonl":        CategoryFileIO,
		"validation failed":         CategoryValidation,
	}
	for msg, want := range cases {
		if got := detectCategory(NewStd(msg), ""); got != want {
			t.Errorf("detectCategory(%q) = %s, want %s", msg, got, want)
		}
	}
	if got := detectCategory(NewStd("something"), "datastore"); got != CategoryDatabase {
		t.Errorf("component fallback = %s, want database", got)
	}
}

func TestRegexPrecompilation(t *testing.T) {
	scrubbed1 := basicURLScrub("Error at https://api.example.com?api_key=secret123&token=abc")
	expected1 := "Error at https://api.example.com?[REDACTED]"
	if scrubbed1 != expected1 {
		t.Errorf("URL scrubbing failed. Expected: %s, got: %s", expected1, scrubbed1)
	}

	scrubbed2 := basicURLScrub("Config error: api_key=secret123 is invalid")
	if !strings.Contains(scrubbed2, "[API_KEY_REDACTED]") {
		t.Errorf("API key scrubbing failed, got: %s", scrubbed2)
	}

	scrubbed3 := basicURLScrub("Auth failed with token=abc123 and auth=xyz789")
	if strings.Contains(scrubbed3, "abc123") || strings.Contains(scrubbed3, "xyz789") {
		t.Errorf("Token scrubbing failed. Sensitive data still present: %s", scrubbed3)
	}
}

func TestScrubMessageHidesHardwareIdentifiers(t *testing.T) {
	msg := ScrubMessage("upsert failed for 70:81:94:0D:FB:AA with key ec0234a357c8ad05341010a60a397d9b")
	if strings.Contains(msg, "70:81:94") {
		t.Errorf("MAC address leaked: %s", msg)
	}
	if strings.Contains(msg, "ec0234a357c8ad05") {
		t.Errorf("IRK leaked: %s", msg)
	}
}
