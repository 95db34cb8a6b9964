package links

import "testing"

func TestExtractClassifiesKinds(t *testing.T) {
	cases := []struct {
		message string
		kind    Kind
		token   string
		source  string
	}{
		{
			message: "please summarize https://acme.feishu.cn/wiki/WikiTok3n?from=from_copylink",
			kind:    KindWiki,
			token:   "WikiTok3n",
			source:  "https://acme.feishu.cn/wiki/WikiTok3n",
		},
		{
			message: "https://acme.feishu.cn/docx/DoxcnAbc123/edit",
			kind:    KindDocument,
			token:   "DoxcnAbc123",
			source:  "https://acme.feishu.cn/docx/DoxcnAbc123",
		},
		{
			message: "numbers in https://team.larksuite.com/base/BascnXyz?table=tbl1 look off",
			kind:    KindTable,
			token:   "BascnXyz",
			source:  "https://team.larksuite.com/base/BascnXyz",
		},
		{
			message: "https://feishu.cn/docx/NoSubdomain what does it say",
			kind:    KindDocument,
			token:   "NoSubdomain",
			source:  "https://feishu.cn/docx/NoSubdomain",
		},
	}
	for _, tc := range cases {
		link, ok := Extract(tc.message)
		if !ok {
			t.Fatalf("expected link in %q", tc.message)
		}
		if link.Kind != tc.kind {
			t.Fatalf("expected kind %s for %q, got %s", tc.kind, tc.message, link.Kind)
		}
		if link.Token != tc.token {
			t.Fatalf("expected token %q, got %q", tc.token, link.Token)
		}
		if link.SourceURL != tc.source {
			t.Fatalf("expected source %q, got %q", tc.source, link.SourceURL)
		}
	}
}

func TestExtractNoMatch(t *testing.T) {
	messages := []string{
		"",
		"hello, how are you?",
		"http://acme.feishu.cn/docx/abc",
		"https://example.com/docx/abc",
		"https://acme.feishu.cn/sheets/abc",
		"https://acme.feishu.cn/docx/",
	}
	for _, message := range messages {
		if link, ok := Extract(message); ok {
			t.Fatalf("expected no link in %q, got %#v", message, link)
		}
	}
}

func TestExtractPrefersWiki(t *testing.T) {
	link, ok := Extract("compare https://a.feishu.cn/docx/D1 with https://a.feishu.cn/wiki/W1")
	if !ok {
		t.Fatal("expected link")
	}
	if link.Kind != KindWiki || link.Token != "W1" {
		t.Fatalf("expected wiki W1, got %#v", link)
	}
}

func TestDocumentID(t *testing.T) {
	cases := map[string]string{
		"DoxcnPlain":     "DoxcnPlain",
		"  DoxcnPadded ": "DoxcnPadded",
		"https://acme.feishu.cn/docx/DoxcnUrl?x=1":   "DoxcnUrl",
		"https://acme.larksuite.com/docx/DoxcnLark/": "DoxcnLark",
		"https://acme.feishu.cn/wiki/NotADocument":   "https://acme.feishu.cn/wiki/NotADocument",
	}
	for input, expected := range cases {
		if got := DocumentID(input); got != expected {
			t.Fatalf("DocumentID(%q) = %q, expected %q", input, got, expected)
		}
	}
}
