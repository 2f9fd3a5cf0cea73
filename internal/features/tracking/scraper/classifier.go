package scraper

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	parcels "parcel-tracker/internal/features/parcels/domain"
	"parcel-tracker/internal/features/tracking/domain"
)

// searchWindow bounds how much of the page is inspected. Carriers put the
// current status near the top of the rendered DOM, so a fixed prefix keeps
// old history-table rows from outweighing the headline status.
const searchWindow = 1000

// dateWindow bounds how far past a trigger phrase a date is searched for.
const dateWindow = 100

// dateTriggers are the phrases that precede an expected-delivery date.
var dateTriggers = []string{
	"estimated delivery",
	"expected delivery",
	"estimated to arrive on or before",
	"arriving by",
	"delivery date",
}

// Keyword buckets in priority order. The order is load-bearing: a page's
// history log may contain "label created" followed later by "delivered",
// so more terminal states must win over stale earlier ones.
var (
	deliveredSignals = []string{"delivered", "left at", "signed for", "front desk", "porch", "mailbox"}
	pickupSignals    = []string{"ready for pickup", "available for pickup", "ready for collection", "awaiting collection"}
	exceptionSignals = []string{"exception", "delay", "held", "customs", "action required", "delivery failed", "returned to sender"}
	vehicleSignals   = []string{"out for delivery", "on vehicle"}
	transitSignals   = []string{"transit", "way", "departed", "arrived at", "we have your package", "possession", "picked up"}
	preShipSignals   = []string{"label created", "information received", "awaiting item", "order processed"}
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	// statusAnchor matches "Status: xyz" style labels when no bucket hits.
	statusAnchor = regexp.MustCompile(`status\s*[:\-]?\s*([a-z ]{3,30})`)
	// Date candidates inside the post-trigger window.
	monthDayDate = regexp.MustCompile(`(?:january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s*\d{4})?`)
	numericDate  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}`)
	ordinalSfx   = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)`)
	yearDigits   = regexp.MustCompile(`\d{4}`)
)

// Classify infers a shipment status from raw scraped page text.
//
// It returns nil when no confident signal is found; the caller must treat
// that as "no update", never as an error. Classification is pure: the same
// normalized text always yields the same result.
func Classify(pageText string) *domain.ScrapedStatus {
	clean := strings.ToLower(pageText)
	if len(clean) > searchWindow {
		clean = clean[:searchWindow]
	}
	// Collapse newline/whitespace runs so a status phrase split across a
	// line break ("Label\nCreated") still matches its keyword.
	clean = whitespaceRun.ReplaceAllString(clean, " ")

	expected := extractExpectedDelivery(clean)

	if match := firstMatch(clean, deliveredSignals); match != "" {
		return &domain.ScrapedStatus{
			Status:           parcels.StatusDelivered,
			Description:      titleCase(match),
			ExpectedDelivery: expected,
		}
	}

	if match := firstMatch(clean, pickupSignals); match != "" {
		return &domain.ScrapedStatus{
			Status:           parcels.StatusOutForDelivery,
			Description:      "Ready for Pickup",
			ExpectedDelivery: expected,
		}
	}

	if match := firstMatch(clean, exceptionSignals); match != "" {
		return &domain.ScrapedStatus{
			Status:           parcels.StatusException,
			Description:      "Attention Needed",
			ExpectedDelivery: expected,
		}
	}

	if match := firstMatch(clean, vehicleSignals); match != "" {
		return &domain.ScrapedStatus{
			Status:           parcels.StatusOutForDelivery,
			Description:      "Out for Delivery",
			ExpectedDelivery: expected,
		}
	}

	if match := firstMatch(clean, transitSignals); match != "" {
		return &domain.ScrapedStatus{
			Status:           parcels.StatusInTransit,
			Description:      "In Transit",
			ExpectedDelivery: expected,
		}
	}

	if match := firstMatch(clean, preShipSignals); match != "" {
		return &domain.ScrapedStatus{
			Status:           parcels.StatusPreShipment,
			Description:      "Label Created",
			ExpectedDelivery: expected,
		}
	}

	// Anchor fallback: carriers restyle their wording constantly, but a
	// literal "Status: <words>" label usually survives redesigns.
	if m := statusAnchor.FindStringSubmatch(clean); m != nil {
		captured := strings.TrimSpace(m[1])
		if captured != "" {
			return &domain.ScrapedStatus{
				Status:           parcels.StatusShipped,
				Description:      titleCase(captured),
				ExpectedDelivery: expected,
			}
		}
	}

	return nil
}

// extractExpectedDelivery scans for a delivery-date trigger phrase and
// tries to parse a date from the text right after it. Failure leaves the
// field nil, never an error.
func extractExpectedDelivery(clean string) *time.Time {
	for _, trigger := range dateTriggers {
		idx := strings.Index(clean, trigger)
		if idx < 0 {
			continue
		}

		window := clean[idx+len(trigger):]
		if len(window) > dateWindow {
			window = window[:dateWindow]
		}

		// Relative dates first: carriers love "arriving by tomorrow".
		if strings.Contains(window, "today") {
			d := startOfDay(time.Now())
			return &d
		}
		if strings.Contains(window, "tomorrow") {
			d := startOfDay(time.Now().AddDate(0, 0, 1))
			return &d
		}

		if d := parseLooseDate(window); d != nil {
			return d
		}
		return nil
	}
	return nil
}

// parseLooseDate finds a date-looking fragment in messy text and parses
// it, assuming the current year when the fragment omits one.
func parseLooseDate(window string) *time.Time {
	if frag := monthDayDate.FindString(window); frag != "" {
		frag = ordinalSfx.ReplaceAllString(frag, "$1")
		if !yearDigits.MatchString(frag) {
			frag = frag + " " + time.Now().Format("2006")
		}
		// Month-name matching in time.Parse is case-insensitive, so the
		// lowercased fragment parses against the standard layouts.
		layouts := []string{
			"January 2, 2006",
			"January 2 2006",
			"Jan 2, 2006",
			"Jan 2 2006",
			"Jan. 2, 2006",
			"Jan. 2 2006",
		}
		for _, layout := range layouts {
			if d, err := time.Parse(layout, frag); err == nil {
				return &d
			}
		}
	}

	if frag := numericDate.FindString(window); frag != "" {
		if d, err := dateparse.ParseAny(frag); err == nil {
			return &d
		}
	}

	return nil
}

func firstMatch(text string, signals []string) string {
	for _, signal := range signals {
		if strings.Contains(text, signal) {
			return signal
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
