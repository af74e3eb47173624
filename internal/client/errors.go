package client

// ErrorKind classifies a failed exchange with the assistant API. The
// controller surfaces Message verbatim, so the taxonomy decides which banner
// the user sees.
type ErrorKind int

const (
	// KindValidation rejects input locally, before any network call.
	KindValidation ErrorKind = iota
	// KindClient is a 400-class response; the server detail is shown verbatim.
	KindClient
	// KindServer is a 500-class response or a request timeout.
	KindServer
	// KindNetwork means no response was received at all.
	KindNetwork
)

// User-facing strings, kept identical to the product's French copy.
const (
	msgEmpty       = "Le message ne peut pas être vide"
	msgTooLong     = "Message trop long (maximum 5000 caractères)"
	msgBadRequest  = "Requête invalide"
	msgServerError = "Erreur du serveur. Veuillez réessayer."
	msgUnreachable = "Impossible de se connecter au serveur"
)

// APIError carries the classification plus the user-facing message.
type APIError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func newAPIError(kind ErrorKind, message string, cause error) *APIError {
	return &APIError{Kind: kind, Message: message, cause: cause}
}
