package fault

type Code string

const (
	CodeUnknown              Code = "UNKNOWN"
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeIdentityUnresolved   Code = "IDENTITY_UNRESOLVED"
	CodeSignatureInvalid     Code = "SIGNATURE_INVALID"
	CodeNotFound             Code = "NOT_FOUND"
	CodeAlreadyExists        Code = "ALREADY_EXISTS"
	CodeUnauthenticated      Code = "UNAUTHENTICATED"
	CodeTransportFailure     Code = "TRANSPORT_FAILURE"
	CodeConsumerDisconnected Code = "CONSUMER_DISCONNECTED"
	CodeInternal             Code = "INTERNAL"
)
