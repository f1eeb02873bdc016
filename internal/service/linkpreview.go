package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"socialgraph/internal/cache"
	"socialgraph/internal/model"
)

// LinkPreviewer derives a preview from message text. It never fails the
// caller: any problem yields a nil preview.
type LinkPreviewer interface {
	Preview(ctx context.Context, text string) *model.LinkPreview
}

const maxPreviewBody = 512 << 10

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

var (
	errBlockedAddress = errors.New("link preview: address not allowed")
	// errUnpreviewable marks answers that will not change on retry.
	errUnpreviewable = errors.New("link preview: page has no preview")
)

// FirstURL returns the first http(s) URL in text, or "".
func FirstURL(text string) string {
	return strings.TrimRight(urlPattern.FindString(text), ".,;:!?)")
}

// HTMLLinkPreviewer fetches the page behind the first URL and reads its
// OpenGraph tags, falling back to <title> and the description meta tag.
type HTMLLinkPreviewer struct {
	client  *http.Client
	cache   cache.PreviewCache // optional
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

type LinkPreviewConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	// AllowPrivateHosts disables the loopback/private address filter.
	AllowPrivateHosts bool
}

func NewHTMLLinkPreviewer(cfg LinkPreviewConfig, previewCache cache.PreviewCache, logger *zap.Logger) *HTMLLinkPreviewer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if !cfg.AllowPrivateHosts {
		dialer.Control = rejectPrivateAddress
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
	}

	return &HTMLLinkPreviewer{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		cache:   previewCache,
		ttl:     cfg.CacheTTL,
		timeout: cfg.Timeout,
		logger:  logger.Named("linkpreview"),
	}
}

// rejectPrivateAddress runs after DNS resolution, so it also covers
// hostnames that resolve to internal addresses.
func rejectPrivateAddress(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return errBlockedAddress
	}
	return nil
}

func (p *HTMLLinkPreviewer) Preview(ctx context.Context, text string) *model.LinkPreview {
	target := FirstURL(text)
	if target == "" {
		return nil
	}

	if p.cache != nil {
		preview, found, err := p.cache.Get(ctx, target)
		if err != nil {
			p.logger.Debug("preview cache read failed", zap.Error(err))
		} else if found {
			return preview
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	preview, err := p.fetch(ctx, target)
	if err != nil {
		p.logger.Debug("preview fetch failed", zap.String("url", target), zap.Error(err))
		preview = nil
	}

	// Timeouts, DNS errors and 5xx are retried on the next message.
	if p.cache != nil && (err == nil || cacheableFailure(err)) {
		// Detached from the request so a cancelled send still records the result.
		setCtx, setCancel := context.WithTimeout(context.Background(), time.Second)
		defer setCancel()
		if err := p.cache.Set(setCtx, target, preview, p.ttl); err != nil {
			p.logger.Debug("preview cache write failed", zap.Error(err))
		}
	}
	return preview
}

func (p *HTMLLinkPreviewer) fetch(ctx context.Context, target string) (*model.LinkPreview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "socialgraph-linkpreview/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if transientStatus(resp.StatusCode) {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d", errUnpreviewable, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return nil, fmt.Errorf("%w: content type %q", errUnpreviewable, ct)
	}

	preview := parsePreview(io.LimitReader(resp.Body, maxPreviewBody), resp.Request.URL)
	if preview == nil {
		return nil, nil
	}
	preview.URL = target
	return preview, nil
}

func transientStatus(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

// cacheableFailure reports whether a fetch error is worth remembering as
// "no preview" for the full cache TTL.
func cacheableFailure(err error) bool {
	return errors.Is(err, errUnpreviewable) || errors.Is(err, errBlockedAddress)
}

// parsePreview scans the document head. Returns nil when no title is found.
func parsePreview(r io.Reader, base *url.URL) *model.LinkPreview {
	var (
		p        model.LinkPreview
		docTitle string
		metaDesc string
		inTitle  bool
	)

	z := html.NewTokenizer(r)
scan:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break scan
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = true
			case atom.Meta:
				if hasAttr {
					readMeta(z, &p, &metaDesc)
				}
			case atom.Body:
				break scan
			}
		case html.TextToken:
			if inTitle && docTitle == "" {
				docTitle = strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); atom.Lookup(name) == atom.Title {
				inTitle = false
			}
		}
	}

	if p.Title == "" {
		p.Title = docTitle
	}
	if p.Description == "" {
		p.Description = metaDesc
	}
	if p.Title == "" {
		return nil
	}
	if p.ImageURL != "" && base != nil {
		if ref, err := url.Parse(p.ImageURL); err == nil {
			p.ImageURL = base.ResolveReference(ref).String()
		}
	}
	return &p
}

func readMeta(z *html.Tokenizer, p *model.LinkPreview, metaDesc *string) {
	var key, content string
	for {
		k, v, more := z.TagAttr()
		switch strings.ToLower(string(k)) {
		case "property", "name":
			key = strings.ToLower(string(v))
		case "content":
			content = strings.TrimSpace(string(v))
		}
		if !more {
			break
		}
	}

	switch key {
	case "og:title":
		p.Title = content
	case "og:description":
		p.Description = content
	case "og:image":
		p.ImageURL = content
	case "og:site_name":
		p.SiteName = content
	case "description":
		*metaDesc = content
	}
}
