package textsource

import (
	"bytes"
	"io"
	"net/http"

	"github.com/samber/oops"
	"resty.dev/v3"
)

// httpSource fetches the document once, on first read, then serves the
// body from memory. The parser's step contract assumes resident input,
// so the whole body is pulled up front instead of streaming the network
// read through every chunk.
type httpSource struct {
	client *resty.Client
	url    string
	body   *bytes.Reader
	err    error
}

// NewHTTP reads from the document at url, fetched with client on the
// first Read. A nil client gets a default one.
func NewHTTP(client *resty.Client, url string) Source {
	if client == nil {
		client = resty.New()
	}

	return &httpSource{client: client, url: url}
}

func (s *httpSource) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	if s.body == nil {
		if err := s.fetch(); err != nil {
			s.err = err
			return 0, err
		}
	}

	return s.body.Read(p)
}

func (s *httpSource) fetch() error {
	response, err := s.client.R().Get(s.url)
	if err != nil {
		return oops.
			Code("SOURCE_FETCH_FAILED").
			With("url", s.url).
			Wrapf(err, "fetching text source")
	}

	if response.StatusCode() < http.StatusOK || response.StatusCode() >= http.StatusMultipleChoices {
		return oops.
			Code("SOURCE_FETCH_FAILED").
			With("url", s.url).
			With("status", response.StatusCode()).
			Hint("Check that the URL serves the document directly").
			Errorf("text source returned non-success status %d", response.StatusCode())
	}

	content, err := io.ReadAll(response.Body)
	if err != nil {
		return oops.
			Code("SOURCE_FETCH_FAILED").
			With("url", s.url).
			Wrapf(err, "reading response body")
	}

	s.body = bytes.NewReader(content)

	return nil
}

func (s *httpSource) Close() error {
	s.body = nil
	return nil
}

func (s *httpSource) Name() string { return s.url }
