// Package docs executes the document actions: create, read and search.
package docs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dwizi/larkbot/internal/actions"
	"github.com/dwizi/larkbot/internal/actions/executor"
	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/links"
	"github.com/dwizi/larkbot/internal/platform"
)

const (
	DefaultTitle = "Test document"

	keywordMatchLimit = 10
	summaryRunes      = 500
	searchCount       = 5
)

type Plugin struct {
	client        platform.Client
	viewerBaseURL string
	now           func() time.Time
}

func New(client platform.Client, viewerBaseURL string) *Plugin {
	return &Plugin{
		client:        client,
		viewerBaseURL: strings.TrimRight(strings.TrimSpace(viewerBaseURL), "/"),
		now:           time.Now,
	}
}

func (p *Plugin) PluginKey() string {
	return "docs"
}

func (p *Plugin) ActionTypes() []string {
	return []string{actions.ActionCreateDocument, actions.ActionReadDocument, actions.ActionSearchDocuments}
}

func (p *Plugin) Execute(ctx context.Context, instruction actions.Instruction) (executor.Result, error) {
	switch typed := instruction.(type) {
	case actions.CreateDocument:
		return p.create(ctx, typed)
	case actions.ReadDocument:
		return p.read(ctx, typed)
	case actions.SearchDocuments:
		return p.search(ctx, typed)
	default:
		return executor.Result{}, agenterr.New(instruction.Action(), agenterr.CategoryInvalidParams, "unsupported by docs plugin")
	}
}

func (p *Plugin) create(ctx context.Context, params actions.CreateDocument) (executor.Result, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		title = DefaultTitle
	}
	markdown := params.Content
	if strings.TrimSpace(markdown) == "" {
		markdown = defaultMarkdown(title, p.now())
	}

	documentID, err := p.client.ImportMarkdown(ctx, title, markdown)
	if err != nil {
		return executor.Result{}, agenterr.Classify(actions.ActionCreateDocument, err)
	}
	if strings.TrimSpace(documentID) == "" {
		return executor.Result{}, agenterr.New(actions.ActionCreateDocument, agenterr.CategoryUnexpectedResponse, "import response carried no document id")
	}
	return executor.Result{
		Message: fmt.Sprintf("✅ Document created!\n📄 Title: %s\n🔗 Link: %s/docx/%s", title, p.viewerBaseURL, documentID),
	}, nil
}

func (p *Plugin) read(ctx context.Context, params actions.ReadDocument) (executor.Result, error) {
	documentID := links.DocumentID(params.DocumentID)
	if documentID == "" {
		return executor.Result{}, agenterr.New(actions.ActionReadDocument, agenterr.CategoryInvalidParams, "document_id is required")
	}
	content, err := p.client.DocumentRawContent(ctx, documentID)
	if err != nil {
		return executor.Result{}, agenterr.Wrap(actions.ActionReadDocument, agenterr.CategoryAccess, err)
	}

	if keyword := strings.TrimSpace(params.SearchKeyword); keyword != "" {
		matched := actions.MatchLines(content, keyword, keywordMatchLimit)
		if len(matched) == 0 {
			return executor.Result{Message: fmt.Sprintf("📄 No content containing %q was found in the document.", keyword)}, nil
		}
		return executor.Result{Message: "📄 Matching content in the document:\n\n" + strings.Join(matched, "\n")}, nil
	}
	return executor.Result{Message: "📄 Document summary:\n\n" + actions.Truncate(content, summaryRunes)}, nil
}

func (p *Plugin) search(ctx context.Context, params actions.SearchDocuments) (executor.Result, error) {
	keyword := strings.TrimSpace(params.Keyword)
	if keyword == "" {
		return executor.Result{}, agenterr.New(actions.ActionSearchDocuments, agenterr.CategoryInvalidParams, "keyword is required")
	}
	refs, err := p.client.SearchDocuments(ctx, keyword, searchCount)
	if err != nil {
		return executor.Result{}, agenterr.Wrap(actions.ActionSearchDocuments, agenterr.CategoryAccess, err)
	}
	if len(refs) == 0 {
		return executor.Result{Message: fmt.Sprintf("🔍 No documents found containing %q.", keyword)}, nil
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "🔍 Found %d related documents:\n\n", len(refs))
	for index, ref := range refs {
		fmt.Fprintf(&builder, "%d. %s\n   ID: %s\n\n", index+1, ref.Title, ref.Token)
	}
	return executor.Result{Message: strings.TrimRight(builder.String(), "\n")}, nil
}

func defaultMarkdown(title string, now time.Time) string {
	return fmt.Sprintf(`# %s

This document was created by the Lark assistant bot.

## Details

- Created at: %s
- Created by: Lark assistant bot
- Purpose: feature test

## Next steps

You can use this document to:

1. Edit its content
2. Add more information
3. Collaborate with your team
`, title, now.Format("2006-01-02 15:04:05"))
}
