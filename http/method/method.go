package method

type Method uint8

const (
	Unknown Method = iota
	GET
	HEAD
	DELETE

	// Count is the last one enum, so contains the greatest integer value of all the
	// methods. So real number of methods is lower by 1
	Count Method = iota - 1
)

// List contains all the supported HTTP methods. They are sorted by their integer value, however
// Unknown method is not included. So in order to index the List, you must subtract 1 first.
var List = []Method{GET, HEAD, DELETE}

// Parse recognizes only the methods the server is able to answer. Everything else, including
// perfectly valid HTTP methods like POST, is Unknown.
func Parse(str string) Method {
	switch str {
	case "GET":
		return GET
	case "HEAD":
		return HEAD
	case "DELETE":
		return DELETE
	}

	return Unknown
}

func (m Method) String() string {
	switch m {
	case GET:
		return "GET"
	case HEAD:
		return "HEAD"
	case DELETE:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}
