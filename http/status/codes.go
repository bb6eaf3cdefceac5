package status

type (
	Code   uint16
	Status string
)

// The server answers with only these. 202 is non-standard here: a DELETE of an existing
// file whose removal failed is answered as "accepted, but not confirmed".
const (
	OK       Code = 200 // RFC 9110, 15.3.1
	Accepted Code = 202 // RFC 9110, 15.3.3
	NotFound Code = 404 // RFC 9110, 15.5.5
)

// KnownCodes lists every code the server may respond with.
var KnownCodes = []Code{OK, Accepted, NotFound}

// Text returns a text for the HTTP status code. It returns the empty
// string if the code is unknown.
func Text(code Code) Status {
	switch code {
	case OK:
		return "OK"
	case Accepted:
		return "Accepted"
	case NotFound:
		return "Not Found"
	default:
		return ""
	}
}

// Line returns the code and its text separated by a space, e.g. "404 Not Found". It is
// used both as the status line tail and as the literal body of short responses.
func Line(code Code) string {
	switch code {
	case OK:
		return "200 OK"
	case Accepted:
		return "202 Accepted"
	case NotFound:
		return "404 Not Found"
	default:
		return ""
	}
}
