package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/citeguard/citeguard/internal/model"
	"github.com/citeguard/citeguard/internal/resilience"
)

// CourtListenerClient implements ExistenceLookup, DocketLookup, and
// CitingLookup against a CourtListener-compatible REST API.
type CourtListenerClient struct {
	baseURL    string
	docketURL  string
	apiKey     string
	userAgent  string
	maxBody    int64
	httpClient *http.Client
}

// NewCourtListenerClient builds a client from the legal API config.
func NewCourtListenerClient(cfg model.LegalAPIConfig) *CourtListenerClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody == 0 {
		maxBody = 5 << 20
	}

	return &CourtListenerClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		docketURL: strings.TrimRight(cfg.DocketURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		maxBody:   maxBody,
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
	}
}

type searchResponse struct {
	Count   int `json:"count"`
	Results []struct {
		ClusterID   json.Number `json:"cluster_id"`
		CaseName    string      `json:"caseName"`
		Court       string      `json:"court"`
		DateFiled   string      `json:"dateFiled"`
		AbsoluteURL string      `json:"absolute_url"`
		Status      string      `json:"status"`
	} `json:"results"`
}

// Exists queries the citation search endpoint. A zero-result response is a
// definitive miss, not an error.
func (c *CourtListenerClient) Exists(ctx context.Context, normalizedCitation string) (*ExistenceRecord, error) {
	q := url.Values{}
	q.Set("type", "o")
	q.Set("citation", normalizedCitation)

	var sr searchResponse
	if err := c.getJSON(ctx, c.baseURL+"/search/?"+q.Encode(), &sr); err != nil {
		return nil, fmt.Errorf("existence lookup: %w", err)
	}

	if sr.Count == 0 || len(sr.Results) == 0 {
		return &ExistenceRecord{Found: false}, nil
	}

	r := sr.Results[0]
	rec := &ExistenceRecord{
		Found:       true,
		ClusterID:   r.ClusterID.String(),
		CaseName:    r.CaseName,
		Court:       r.Court,
		URL:         r.AbsoluteURL,
		Unpublished: strings.EqualFold(r.Status, "unpublished"),
	}
	if t, err := time.Parse("2006-01-02", r.DateFiled); err == nil {
		rec.DateFiled = t
	}
	return rec, nil
}

type opinionResponse struct {
	PlainText string `json:"plain_text"`
	HTML      string `json:"html"`
}

// OpinionText fetches the full opinion for a cluster. HTML bodies are
// reduced to plain text.
func (c *CourtListenerClient) OpinionText(ctx context.Context, clusterID string) (string, error) {
	var or opinionResponse
	if err := c.getJSON(ctx, c.baseURL+"/opinions/"+url.PathEscape(clusterID)+"/", &or); err != nil {
		return "", fmt.Errorf("opinion text: %w", err)
	}
	if or.PlainText != "" {
		return or.PlainText, nil
	}
	return stripHTML(or.HTML), nil
}

// FindDocket queries the docket-record endpoint, the fallback for federal
// citations the primary search misses (recent or unpublished decisions).
func (c *CourtListenerClient) FindDocket(ctx context.Context, normalizedCitation string) (*ExistenceRecord, error) {
	q := url.Values{}
	q.Set("citation", normalizedCitation)

	var sr searchResponse
	if err := c.getJSON(ctx, c.docketURL+"/?"+q.Encode(), &sr); err != nil {
		return nil, fmt.Errorf("docket lookup: %w", err)
	}
	if sr.Count == 0 || len(sr.Results) == 0 {
		return &ExistenceRecord{Found: false}, nil
	}

	r := sr.Results[0]
	rec := &ExistenceRecord{
		Found:       true,
		ClusterID:   r.ClusterID.String(),
		CaseName:    r.CaseName,
		Court:       r.Court,
		URL:         r.AbsoluteURL,
		Unpublished: true, // docket-only records have no published opinion
	}
	if t, err := time.Parse("2006-01-02", r.DateFiled); err == nil {
		rec.DateFiled = t
	}
	return rec, nil
}

type citingResponse struct {
	Next    string `json:"next"`
	Results []struct {
		CaseName  string `json:"caseName"`
		Snippet   string `json:"snippet"`
		DateFiled string `json:"dateFiled"`
	} `json:"results"`
}

// ForwardCitations returns one page of cases citing the given cluster.
func (c *CourtListenerClient) ForwardCitations(ctx context.Context, clusterID string, page int) ([]CitingCase, bool, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("type", "o")
	q.Set("q", "cites:("+clusterID+")")
	q.Set("page", fmt.Sprintf("%d", page))

	var cr citingResponse
	if err := c.getJSON(ctx, c.baseURL+"/search/?"+q.Encode(), &cr); err != nil {
		return nil, false, fmt.Errorf("forward citations: %w", err)
	}

	cases := make([]CitingCase, 0, len(cr.Results))
	for _, r := range cr.Results {
		cc := CitingCase{CaseName: r.CaseName, TreatmentText: r.Snippet}
		if t, err := time.Parse("2006-01-02", r.DateFiled); err == nil {
			cc.DateFiled = t
		}
		cases = append(cases, cc)
	}
	return cases, cr.Next != "", nil
}

// getJSON performs a GET and decodes the body, translating transport-level
// failures into the retry classifier's error types.
func (c *CourtListenerClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &resilience.HTTPError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// stripHTML reduces an HTML opinion body to its text content.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "br" || n.Data == "div") {
			b.WriteString("\n")
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String())
}
