// Package links finds Lark/Feishu content URLs inside chat messages.
package links

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindWiki     Kind = "wiki"
	KindDocument Kind = "document"
	KindTable    Kind = "table"
)

type Link struct {
	Kind      Kind
	Token     string
	SourceURL string
}

const hostPattern = `https://(?:[A-Za-z0-9-]+\.)*(?:feishu\.cn|larksuite\.com)`

const tokenPattern = `([^/?#\s]+)`

type linkPattern struct {
	kind    Kind
	pattern *regexp.Regexp
}

// Order matters only for messages carrying several links: the first kind
// in this list that matches anywhere in the message wins.
var linkPatterns = []linkPattern{
	{kind: KindWiki, pattern: regexp.MustCompile(hostPattern + `/wiki/` + tokenPattern)},
	{kind: KindDocument, pattern: regexp.MustCompile(hostPattern + `/docx/` + tokenPattern)},
	{kind: KindTable, pattern: regexp.MustCompile(hostPattern + `/base/` + tokenPattern)},
}

var documentPathPattern = regexp.MustCompile(`/docx/` + tokenPattern)

// Extract returns the first platform content link found in message.
func Extract(message string) (Link, bool) {
	for _, candidate := range linkPatterns {
		matches := candidate.pattern.FindStringSubmatch(message)
		if len(matches) < 2 {
			continue
		}
		return Link{
			Kind:      candidate.kind,
			Token:     matches[1],
			SourceURL: matches[0],
		}, true
	}
	return Link{}, false
}

// DocumentID accepts either a bare document ID or a full document URL.
func DocumentID(ref string) string {
	trimmed := strings.TrimSpace(ref)
	lower := strings.ToLower(trimmed)
	if !strings.Contains(lower, "feishu.cn") && !strings.Contains(lower, "larksuite.com") {
		return trimmed
	}
	matches := documentPathPattern.FindStringSubmatch(trimmed)
	if len(matches) < 2 {
		return trimmed
	}
	return matches[1]
}
