package carrier

import (
	"net/url"
	"strings"
)

// Carrier is a guess at the carrier behind a tracking number.
type Carrier string

const (
	// Auto means the user left carrier selection to detection.
	Auto Carrier = "Auto-Detect"
	// UPS is United Parcel Service.
	UPS Carrier = "UPS"
	// FedEx is Federal Express.
	FedEx Carrier = "FedEx"
	// USPS is the United States Postal Service.
	USPS Carrier = "USPS"
	// DHL is DHL Express.
	DHL Carrier = "DHL"
	// Unknown means no format rule matched.
	Unknown Carrier = "Other"
)

// Detect guesses the carrier from the shape of a tracking number alone.
// It is deterministic, does no I/O, and never fails: unmatched input
// yields Unknown. Rules are checked in order, first match wins.
//
// The FedEx rule is a weak digit-count heuristic and is known to produce
// false positives (a 22-digit USPS number starting with 9 classifies as
// FedEx because the FedEx rule runs first). The behavior is kept as is:
// changing the order would silently reclassify existing numbers.
func Detect(trackingNumber string) Carrier {
	clean := strings.ToUpper(strings.ReplaceAll(trackingNumber, " ", ""))

	// UPS: 1Z + 16 alphanumeric (18 total).
	if strings.HasPrefix(clean, "1Z") && len(clean) == 18 && isAlphanumeric(clean) {
		return UPS
	}

	if isDigits(clean) {
		length := len(clean)

		// FedEx: common pure-digit lengths.
		switch length {
		case 12, 13, 14, 15, 22, 34:
			return FedEx
		}

		// USPS: 20-22 digits starting with 9 (e.g. 9400...).
		if length >= 20 && length <= 22 && strings.HasPrefix(clean, "9") {
			return USPS
		}

		// DHL: 10-digit numeric.
		if length == 10 {
			return DHL
		}
	}

	return Unknown
}

// TrackingURL builds the public tracking page URL for a carrier and
// tracking number, falling back to a search engine query when the
// carrier has no known direct URL.
func TrackingURL(carrierName, trackingNumber string) string {
	cleanCarrier := strings.ToLower(carrierName)
	cleanTracking := strings.TrimSpace(trackingNumber)

	switch {
	case strings.Contains(cleanCarrier, "ups"):
		return "https://www.ups.com/track?tracknum=" + url.QueryEscape(cleanTracking)
	case strings.Contains(cleanCarrier, "usps"):
		return "https://tools.usps.com/go/TrackConfirmAction?tLabels=" + url.QueryEscape(cleanTracking)
	case strings.Contains(cleanCarrier, "fedex"):
		return "https://www.fedex.com/fedextrack/?trknbr=" + url.QueryEscape(cleanTracking)
	case strings.Contains(cleanCarrier, "dhl"):
		return "https://www.dhl.com/global-en/home/tracking/tracking-express.html?submit=1&tracking-id=" + url.QueryEscape(cleanTracking)
	}

	query := url.QueryEscape(carrierName + " tracking " + trackingNumber)
	return "https://duckduckgo.com/?q=" + query
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
