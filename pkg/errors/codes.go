package errors

type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeNoCandidates       Code = "NO_CANDIDATES"
	CodePartnerUnavailable Code = "PARTNER_UNAVAILABLE"
	CodeProfileNotFound    Code = "PROFILE_NOT_FOUND"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	CodeInternal           Code = "INTERNAL"
)
