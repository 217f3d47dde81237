package wire

import "io"

// Response status lines. Byte-significant: existing clients parse the reply
// as a fixed status line followed immediately by the body, with no length
// field and no header/body separator beyond what is embedded here.
const (
	OKResponse          = "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\n\r\n"
	NotFoundResponse    = "HTTP/1.1 404 Not Found\r\n\r\n"
	ServerErrorResponse = "HTTP/1.1 500 Internal Server Error\r\n\r\n"
)

// Encode writes a reply: status line, then the body verbatim.
func Encode(w io.Writer, statusLine, body string) error {
	_, err := io.WriteString(w, statusLine+body)
	return err
}
