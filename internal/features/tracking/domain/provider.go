package domain

// Provider identifies a structured tracking API provider.
type Provider string

const (
	// ProviderTrackingmore is the Trackingmore v4 API.
	ProviderTrackingmore Provider = "trackingmore"
	// ProviderTrack123 is the Track123 open API.
	ProviderTrack123 Provider = "track123"
)

// AllProviders lists the supported providers.
var AllProviders = []Provider{ProviderTrackingmore, ProviderTrack123}

// Valid reports whether p names a supported provider.
func (p Provider) Valid() bool {
	for _, known := range AllProviders {
		if p == known {
			return true
		}
	}
	return false
}

// CredentialAccount returns the account name the provider's API key is
// stored under in the credential store.
func (p Provider) CredentialAccount() string {
	switch p {
	case ProviderTrackingmore:
		return "api_key_trackingmore"
	case ProviderTrack123:
		return "api_key_track123"
	default:
		return "api_key_" + string(p)
	}
}
