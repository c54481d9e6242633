package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// extractImageURLs returns the absolute http(s) URLs of the images referenced
// by a page, in document order without duplicates. It picks up <img src>,
// the first candidate of <img srcset> and og:image / twitter:image meta tags.
func extractImageURLs(r io.Reader, base *url.URL) []string {
	var (
		urls []string
		seen = make(map[string]bool)
	)
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		s := abs.String()
		if !seen[s] {
			seen[s] = true
			urls = append(urls, s)
		}
	}

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return urls
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "img":
				add(attr(tok, "src"))
				if srcset := attr(tok, "srcset"); srcset != "" {
					first, _, _ := strings.Cut(srcset, ",")
					candidate, _, _ := strings.Cut(strings.TrimSpace(first), " ")
					add(candidate)
				}
			case "meta":
				switch attr(tok, "property") + attr(tok, "name") {
				case "og:image", "twitter:image":
					add(attr(tok, "content"))
				}
			case "base":
				if href := attr(tok, "href"); href != "" {
					if ref, err := url.Parse(href); err == nil {
						base = base.ResolveReference(ref)
					}
				}
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
