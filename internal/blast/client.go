package blast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type PollStatus string

const (
	StatusReady   PollStatus = "READY"
	StatusNoHits  PollStatus = "NO_HITS"
	StatusFailed  PollStatus = "FAILED"
	StatusTimeout PollStatus = "TIMEOUT"
)

const (
	DefaultSearchURL     = "https://blast.ncbi.nlm.nih.gov/Blast.cgi"
	DefaultSequenceURL   = "https://www.ncbi.nlm.nih.gov/sviewer/viewer.fcgi"
	DefaultAnnotationURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"

	maxBodyBytes = 64 << 20
)

var (
	ridPattern  = regexp.MustCompile(`RID = (\S+)`)
	genePattern = regexp.MustCompile(`/gene="([^"]+)"`)
)

type Config struct {
	SearchURL     string
	SequenceURL   string
	AnnotationURL string
	Email         string
	Program       string
	Database      string

	PollInterval   time.Duration
	RequestTimeout time.Duration
	StatusTimeout  time.Duration

	// RequestsPerSecond spaces every outbound request of this client.
	// Zero disables the limiter.
	RequestsPerSecond float64
}

type Client struct {
	httpClient     *http.Client
	logger         *zap.Logger
	limiter        *rate.Limiter
	searchURL      string
	sequenceURL    string
	annotationURL  string
	email          string
	program        string
	database       string
	pollInterval   time.Duration
	requestTimeout time.Duration
	statusTimeout  time.Duration
	now            func() time.Time
}

func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		httpClient:     httpClient,
		logger:         logger.Named("blast"),
		searchURL:      withDefault(cfg.SearchURL, DefaultSearchURL),
		sequenceURL:    withDefault(cfg.SequenceURL, DefaultSequenceURL),
		annotationURL:  withDefault(cfg.AnnotationURL, DefaultAnnotationURL),
		email:          cfg.Email,
		program:        withDefault(cfg.Program, "blastp"),
		database:       withDefault(cfg.Database, "nr"),
		pollInterval:   cfg.PollInterval,
		requestTimeout: cfg.RequestTimeout,
		statusTimeout:  cfg.StatusTimeout,
		now:            time.Now,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 8 * time.Second
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = 10 * time.Second
	}
	if c.statusTimeout <= 0 {
		c.statusTimeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// FetchSequence downloads the FASTA record for an accession.
func (c *Client) FetchSequence(ctx context.Context, accession string) (string, error) {
	query := url.Values{
		"id":      {accession},
		"db":      {"protein"},
		"report":  {"fasta"},
		"retmode": {"text"},
	}
	status, body, err := c.do(ctx, http.MethodGet, c.sequenceURL, query, c.requestTimeout)
	if err != nil {
		return "", &Error{Op: OpFetchSequence, Target: accession, Err: err}
	}
	if status != http.StatusOK {
		return "", &Error{Op: OpFetchSequence, Target: accession, Err: fmt.Errorf("unexpected status %d", status)}
	}
	if !strings.HasPrefix(body, ">") {
		return "", &Error{Op: OpFetchSequence, Target: accession, Err: errors.New("response is not a FASTA record")}
	}
	return strings.TrimSpace(body), nil
}

// Submit queues a search restricted to one taxonomy id and returns its RID.
func (c *Client) Submit(ctx context.Context, sequence, taxID string) (string, error) {
	form := url.Values{
		"CMD":          {"Put"},
		"PROGRAM":      {c.program},
		"DATABASE":     {c.database},
		"QUERY":        {sequence},
		"ENTREZ_QUERY": {fmt.Sprintf("txid%s[Organism]", taxID)},
		"EMAIL":        {c.email},
	}
	status, body, err := c.do(ctx, http.MethodPost, c.searchURL, form, c.requestTimeout)
	if err != nil {
		return "", &Error{Op: OpSubmit, Target: taxID, Err: err}
	}
	if !successStatus(status) {
		return "", &Error{Op: OpSubmit, Target: taxID, Err: fmt.Errorf("unexpected status %d", status)}
	}

	match := ridPattern.FindStringSubmatch(body)
	if match == nil {
		return "", &Error{Op: OpSubmit, Target: taxID, Err: errors.New("no RID in response")}
	}
	return match[1], nil
}

// Poll waits for a submitted search to finish. Transport failures count as
// "not finished yet". With budget > 0 the wait gives up with StatusTimeout
// once more than budget has elapsed; a zero budget waits indefinitely. The
// only error returned is context cancellation.
func (c *Client) Poll(ctx context.Context, rid string, budget time.Duration) (PollStatus, error) {
	query := url.Values{
		"CMD":           {"Get"},
		"RID":           {rid},
		"FORMAT_OBJECT": {"SearchInfo"},
	}
	start := c.now()

	for attempt := 1; ; attempt++ {
		elapsed := c.now().Sub(start)
		if budget > 0 && elapsed > budget {
			c.logger.Warn("search timed out",
				zap.String("rid", rid),
				zap.Duration("elapsed", elapsed),
				zap.Duration("budget", budget),
			)
			return StatusTimeout, nil
		}

		if err := sleep(ctx, c.pollInterval); err != nil {
			return "", err
		}

		_, body, err := c.do(ctx, http.MethodGet, c.searchURL, query, c.statusTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.Warn("status check failed", zap.String("rid", rid), zap.Error(err))
			continue
		}

		if status, done := classifyStatus(body); done {
			return status, nil
		}

		if attempt%3 == 0 {
			c.logger.Debug("still waiting for search",
				zap.String("rid", rid),
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", c.now().Sub(start)),
				zap.Duration("budget", budget),
			)
		}
	}
}

func classifyStatus(body string) (PollStatus, bool) {
	switch {
	case strings.Contains(body, "Status=READY"):
		if strings.Contains(body, "ThereAreHits=yes") {
			return StatusReady, true
		}
		return StatusNoHits, true
	case strings.Contains(body, "Status=FAILED"):
		return StatusFailed, true
	default:
		return "", false
	}
}

// FetchResult downloads the XML report of a finished search.
func (c *Client) FetchResult(ctx context.Context, rid string) (string, error) {
	query := url.Values{
		"CMD":         {"Get"},
		"RID":         {rid},
		"FORMAT_TYPE": {"XML"},
	}
	status, body, err := c.do(ctx, http.MethodGet, c.searchURL, query, c.requestTimeout)
	if err != nil {
		return "", &Error{Op: OpFetchResult, Target: rid, Err: err}
	}
	if !successStatus(status) {
		return "", &Error{Op: OpFetchResult, Target: rid, Err: fmt.Errorf("unexpected status %d", status)}
	}
	return body, nil
}

// GeneSymbol looks up the gene qualifier of a protein record. Any failure
// yields "NA".
func (c *Client) GeneSymbol(ctx context.Context, accession string) string {
	query := url.Values{
		"db":      {"protein"},
		"id":      {accession},
		"rettype": {"gb"},
		"retmode": {"text"},
		"email":   {c.email},
	}
	status, body, err := c.do(ctx, http.MethodGet, c.annotationURL, query, c.requestTimeout)
	if err != nil || !successStatus(status) {
		c.logger.Debug("gene lookup failed", zap.String("accession", accession), zap.Int("status", status), zap.Error(err))
		return "NA"
	}
	if match := genePattern.FindStringSubmatch(body); match != nil {
		return match[1]
	}
	return "NA"
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, timeout time.Duration) (int, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, "", fmt.Errorf("wait for request slot: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
	}
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, string(body), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func successStatus(status int) bool {
	return status >= 200 && status < 300
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
