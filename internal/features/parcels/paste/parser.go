package paste

import (
	"regexp"
	"strings"

	"parcel-tracker/internal/features/tracking/carrier"
)

// ParsedParcelData holds whatever could be extracted from pasted text.
// Every field is independently optional.
type ParsedParcelData struct {
	// TrackingNumber is the extracted tracking number, if any.
	TrackingNumber string `json:"tracking_number,omitempty"`
	// OrderNumber is the extracted merchant order reference, if any.
	OrderNumber string `json:"order_number,omitempty"`
	// Carrier is the carrier guess implied by the matched format.
	Carrier carrier.Carrier `json:"carrier"`
}

var (
	upsPattern   = regexp.MustCompile(`\b1Z[0-9A-Z]{16}\b`)
	uspsPattern  = regexp.MustCompile(`\b(?:94|93|92|95)[0-9]{20}\b`)
	fedexPattern = regexp.MustCompile(`\b[0-9]{12,15}\b`)
	orderPattern = regexp.MustCompile(`(?i)order\s*(?:number|id|#)?\s*[:#\-]?\s*([A-Za-z0-9\-]{5,20})`)
)

// Parse extracts a tracking number, order number, and carrier guess from
// free-form pasted text (order confirmation emails, shipping notices).
// Tracking patterns are tried strictest first; the 12-15 digit FedEx
// match is loose and can false-positive on other long numbers.
func Parse(text string) ParsedParcelData {
	result := ParsedParcelData{Carrier: carrier.Auto}
	clean := strings.TrimSpace(text)

	if match := upsPattern.FindString(clean); match != "" {
		result.TrackingNumber = match
		result.Carrier = carrier.UPS
	} else if match := uspsPattern.FindString(clean); match != "" {
		result.TrackingNumber = match
		result.Carrier = carrier.USPS
	} else if match := fedexPattern.FindString(clean); match != "" {
		result.TrackingNumber = match
		result.Carrier = carrier.FedEx
	}

	if m := orderPattern.FindStringSubmatch(clean); m != nil {
		result.OrderNumber = m[1]
	}

	return result
}
