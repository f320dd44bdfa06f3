package auth

// Request headers read by the gate.
const (
	HeaderAPIKey        = "X-API-Key"
	HeaderActorID       = "X-Actor-Id"
	HeaderActorType     = "X-Actor-Type"
	HeaderPurpose       = "X-Purpose"
	HeaderRequestID     = "X-Request-Id"
	HeaderAllowUnmasked = "X-Allow-Unmasked"
)

// RequiredPurpose is the only purpose of use the gateway accepts. It is
// compared byte for byte.
const RequiredPurpose = "insurance_verification"

// Error codes returned by the gate.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeBadRequest   = "BAD_REQUEST"
)

// AllHeaders lists every header a client may send, for CORS preflight.
var AllHeaders = []string{
	HeaderAPIKey,
	HeaderActorID,
	HeaderActorType,
	HeaderPurpose,
	HeaderRequestID,
	HeaderAllowUnmasked,
}
