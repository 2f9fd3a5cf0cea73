package scraper

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parcels "parcel-tracker/internal/features/parcels/domain"
)

// TestClassify_Delivered verifies delivered phrasing wins.
func TestClassify_Delivered(t *testing.T) {
	got := Classify("Your package was Delivered today at 2:14pm")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusDelivered, got.Status)
}

// TestClassify_DeliveredBeatsStaleHistory verifies the priority order: a
// page whose history still contains "label created" classifies as
// delivered when a delivered phrase is also present.
func TestClassify_DeliveredBeatsStaleHistory(t *testing.T) {
	page := "Label created on Monday. In transit Tuesday. Delivered Wednesday, left at front door."
	got := Classify(page)
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusDelivered, got.Status)
}

// TestClassify_ReadyForPickup verifies pickup phrasing maps to out for
// delivery with a fixed description.
func TestClassify_ReadyForPickup(t *testing.T) {
	got := Classify("Your item is ready for pickup at the post office")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusOutForDelivery, got.Status)
	assert.Equal(t, "Ready for Pickup", got.Description)
}

// TestClassify_Exception verifies exception phrasing.
func TestClassify_Exception(t *testing.T) {
	got := Classify("Your shipment is held in customs, action required")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusException, got.Status)
}

// TestClassify_OutForDelivery verifies vehicle phrasing.
func TestClassify_OutForDelivery(t *testing.T) {
	got := Classify("Package is out for delivery and will arrive soon")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusOutForDelivery, got.Status)
	assert.Equal(t, "Out for Delivery", got.Description)
}

// TestClassify_InTransit verifies transit phrasing.
func TestClassify_InTransit(t *testing.T) {
	got := Classify("Departed regional facility, on its way")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusInTransit, got.Status)
}

// TestClassify_PreShipment verifies label phrasing.
func TestClassify_PreShipment(t *testing.T) {
	got := Classify("Shipping label created, USPS awaiting item")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusPreShipment, got.Status)
}

// TestClassify_NewlineInsensitive verifies a keyword split across a line
// break still matches after whitespace collapsing.
func TestClassify_NewlineInsensitive(t *testing.T) {
	got := Classify("Label\n   created")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusPreShipment, got.Status)
}

// TestClassify_AnchorFallback verifies a "Status: xyz" label is used when
// no keyword bucket matches.
func TestClassify_AnchorFallback(t *testing.T) {
	got := Classify("Tracking details. Status: moving along nicely")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusShipped, got.Status)
	assert.NotEmpty(t, got.Description)
}

// TestClassify_NoSignal verifies unrecognizable text yields nil.
func TestClassify_NoSignal(t *testing.T) {
	assert.Nil(t, Classify("Welcome to our website. Please enable JavaScript."))
	assert.Nil(t, Classify(""))
}

// TestClassify_SearchWindow verifies signals beyond the inspection window
// are ignored.
func TestClassify_SearchWindow(t *testing.T) {
	page := strings.Repeat("x", 2000) + " delivered"
	assert.Nil(t, Classify(page))
}

// TestClassify_Idempotent verifies the same text always classifies the same way.
func TestClassify_Idempotent(t *testing.T) {
	page := "Out for delivery. Estimated Delivery: tomorrow"
	first := Classify(page)
	require.NotNil(t, first)
	for i := 0; i < 3; i++ {
		again := Classify(page)
		require.NotNil(t, again)
		assert.Equal(t, first.Status, again.Status)
		assert.Equal(t, first.Description, again.Description)
	}
}

// TestClassify_ExpectedDeliveryTomorrow verifies relative-date extraction.
func TestClassify_ExpectedDeliveryTomorrow(t *testing.T) {
	got := Classify("Out for delivery. Estimated Delivery: tomorrow by 8pm")
	require.NotNil(t, got)
	require.NotNil(t, got.ExpectedDelivery)

	want := startOfDay(time.Now().AddDate(0, 0, 1))
	assert.Equal(t, want, *got.ExpectedDelivery)
}

// TestClassify_ExpectedDeliveryToday verifies "today" resolves to the
// start of the current day.
func TestClassify_ExpectedDeliveryToday(t *testing.T) {
	got := Classify("Out for delivery. Arriving by today before 9pm")
	require.NotNil(t, got)
	require.NotNil(t, got.ExpectedDelivery)
	assert.Equal(t, startOfDay(time.Now()), *got.ExpectedDelivery)
}

// TestClassify_ExpectedDeliveryMonthDay verifies a month-name date without
// a year parses with the current year assumed.
func TestClassify_ExpectedDeliveryMonthDay(t *testing.T) {
	got := Classify("In transit. Expected delivery March 14th")
	require.NotNil(t, got)
	require.NotNil(t, got.ExpectedDelivery)

	assert.Equal(t, time.March, got.ExpectedDelivery.Month())
	assert.Equal(t, 14, got.ExpectedDelivery.Day())
	assert.Equal(t, time.Now().Year(), got.ExpectedDelivery.Year())
}

// TestClassify_ExpectedDeliveryNumeric verifies ISO-style dates parse.
func TestClassify_ExpectedDeliveryNumeric(t *testing.T) {
	got := Classify("In transit. Delivery date 2026-09-03")
	require.NotNil(t, got)
	require.NotNil(t, got.ExpectedDelivery)
	assert.Equal(t, 2026, got.ExpectedDelivery.Year())
	assert.Equal(t, time.September, got.ExpectedDelivery.Month())
	assert.Equal(t, 3, got.ExpectedDelivery.Day())
}

// TestClassify_DateWindowBound verifies a date far past the trigger phrase
// is not picked up.
func TestClassify_DateWindowBound(t *testing.T) {
	page := "In transit. Estimated delivery " + strings.Repeat("soon ", 30) + "2026-09-03"
	got := Classify(page)
	require.NotNil(t, got)
	assert.Nil(t, got.ExpectedDelivery)
}

// TestClassify_UnparseableDate verifies a trigger with no parseable date
// still classifies, with the date left unset.
func TestClassify_UnparseableDate(t *testing.T) {
	got := Classify("Out for delivery. Estimated delivery pending")
	require.NotNil(t, got)
	assert.Equal(t, parcels.StatusOutForDelivery, got.Status)
	assert.Nil(t, got.ExpectedDelivery)
}
