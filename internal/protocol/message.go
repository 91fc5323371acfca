package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nao1215/jurisdata/internal/model"
)

// RequestTypeScrape is the type of a discovery request.
const RequestTypeScrape = "scrape_request"

// Request is the envelope sent to the service.
type Request struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// NewScrapeRequest builds the request for url.
func NewScrapeRequest(url string) Request {
	return Request{Type: RequestTypeScrape, URL: url}
}

// EncodeRequest serializes req. HTML characters are not escaped.
func EncodeRequest(req Request) ([]byte, error) {
	if req.URL == "" {
		return nil, ErrEmptyURL
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Element is one discovered element as sent by the service.
type Element struct {
	CSSClass       string `json:"css_class"`
	TagName        string `json:"tag_name"`
	ElementCount   int    `json:"element_count"`
	ExampleContent string `json:"example_content"`
	SuggestedXPath string `json:"suggested_xpath"`
	IsLink         bool   `json:"is_link"`
}

// Content holds the element lists of a response.
type Content struct {
	Classes   []Element `json:"classes"`
	OtherData []Element `json:"other_datas"`
}

// Response is the decoded service reply.
type Response struct {
	Success bool
	Content Content
}

type responseWire struct {
	Success *bool    `json:"success"`
	Content *Content `json:"content"`
}

// DecodeResponse parses a raw response. Empty input, invalid JSON and a
// missing success field return ErrMalformedResponse. Missing content or
// element lists decode as empty lists.
func DecodeResponse(raw []byte) (Response, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Response{}, fmt.Errorf("%w: empty payload", ErrMalformedResponse)
	}

	var w responseWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if w.Success == nil {
		return Response{}, fmt.Errorf("%w: missing success field", ErrMalformedResponse)
	}

	resp := Response{Success: *w.Success}
	if w.Content != nil {
		resp.Content = *w.Content
	}
	if resp.Content.Classes == nil {
		resp.Content.Classes = []Element{}
	}
	if resp.Content.OtherData == nil {
		resp.Content.OtherData = []Element{}
	}
	return resp, nil
}

// Result converts the response content to a model.Result. Negative element
// counts become zero.
func (r Response) Result() model.Result {
	return model.Result{
		Classes:   toElements(r.Content.Classes),
		OtherData: toElements(r.Content.OtherData),
	}
}

func toElements(in []Element) []model.DiscoveredElement {
	out := make([]model.DiscoveredElement, 0, len(in))
	for _, e := range in {
		out = append(out, model.DiscoveredElement{
			CSSClass:       e.CSSClass,
			TagName:        e.TagName,
			ElementCount:   max(e.ElementCount, 0),
			ExampleContent: e.ExampleContent,
			SuggestedXPath: e.SuggestedXPath,
			IsLink:         e.IsLink,
		})
	}
	return out
}
