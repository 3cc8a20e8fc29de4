package model

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"

	"mpesa-subscription-shop/internal/domain"
)

// DonationPrefix marks references created for free-form donations.
const DonationPrefix = "DONATION"

// NewReference builds the correlation key for a charge: "{INTENT}-{ULID}".
// The intent part is the uppercased plan id, or DONATION. A ULID carries a
// millisecond timestamp plus 80 bits of entropy, so references stay unique
// under concurrent initiation without a central counter.
func NewReference(intent PaymentIntent, planID string) string {
	prefix := DonationPrefix
	if intent == IntentSubscription {
		prefix = strings.ToUpper(planID)
	}
	return prefix + "-" + ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// ParseReferenceIntent recovers the intent and plan id encoded in a reference.
func ParseReferenceIntent(ref string) (PaymentIntent, string, error) {
	i := strings.LastIndex(ref, "-")
	if i <= 0 || i == len(ref)-1 {
		return "", "", domain.ErrInvalidArgument
	}
	prefix := ref[:i]
	if prefix == DonationPrefix {
		return IntentDonation, "", nil
	}
	return IntentSubscription, strings.ToLower(prefix), nil
}
