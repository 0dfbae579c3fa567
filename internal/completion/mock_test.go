package completion

import (
	"errors"
	"io"
	"strings"

	fhttp "github.com/bogdanfinn/fhttp"
)

// MockResponseBody is a ReadCloser that simulates reading response data
type MockResponseBody struct {
	data   []byte
	pos    int
	closed bool
	// failAt makes Read return readErr once pos reaches it (0 disables)
	failAt  int
	readErr error
}

// NewMockResponseBody creates a new MockResponseBody with the given data
func NewMockResponseBody(data string) *MockResponseBody {
	return &MockResponseBody{data: []byte(data)}
}

// Read implements the io.Reader interface
func (m *MockResponseBody) Read(p []byte) (n int, err error) {
	if m.failAt > 0 && m.pos >= m.failAt {
		return 0, m.readErr
	}
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	end := len(m.data)
	if m.failAt > 0 && m.failAt < end {
		end = m.failAt
	}
	n = copy(p, m.data[m.pos:end])
	m.pos += n
	return n, nil
}

// Close implements the io.Closer interface
func (m *MockResponseBody) Close() error {
	m.closed = true
	return nil
}

// mockDoer records the last request and replays a canned response
type mockDoer struct {
	response *fhttp.Response
	err      error
	lastReq  *fhttp.Request
	lastBody string
}

func (m *mockDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	m.lastReq = req
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		m.lastBody = string(data)
	}
	return m.response, m.err
}

func newMockDoer(statusCode int, body string) *mockDoer {
	return &mockDoer{
		response: &fhttp.Response{
			StatusCode: statusCode,
			Body:       NewMockResponseBody(body),
			Header:     make(fhttp.Header),
		},
	}
}

func newMockDoerWithError(err error) *mockDoer {
	return &mockDoer{err: err}
}

// sseEvents joins JSON payloads into an SSE stream body
func sseEvents(payloads ...string) string {
	var sb strings.Builder
	for _, p := range payloads {
		sb.WriteString("data: ")
		sb.WriteString(p)
		sb.WriteString("\r\n\r\n")
	}
	return sb.String()
}

var errConnReset = errors.New("connection reset by peer")
