// Package wiki executes read_wiki against knowledge-base nodes.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwizi/larkbot/internal/actions"
	"github.com/dwizi/larkbot/internal/actions/executor"
	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/fetcher"
)

const keywordMatchLimit = 10

type PageReader interface {
	Wiki(ctx context.Context, token string) (fetcher.WikiPage, error)
}

type Plugin struct {
	reader PageReader
}

func New(reader PageReader) *Plugin {
	return &Plugin{reader: reader}
}

func (p *Plugin) PluginKey() string {
	return "wiki"
}

func (p *Plugin) ActionTypes() []string {
	return []string{actions.ActionReadWiki}
}

func (p *Plugin) Execute(ctx context.Context, instruction actions.Instruction) (executor.Result, error) {
	params, ok := instruction.(actions.ReadWiki)
	if !ok {
		return executor.Result{}, agenterr.New(instruction.Action(), agenterr.CategoryInvalidParams, "unsupported by wiki plugin")
	}
	token := strings.TrimSpace(params.NodeToken)
	if token == "" {
		return executor.Result{}, agenterr.New(actions.ActionReadWiki, agenterr.CategoryInvalidParams, "node_token is required")
	}

	page, err := p.reader.Wiki(ctx, token)
	if err != nil {
		failure := agenterr.WithOp(actions.ActionReadWiki, err)
		if failure.Category == agenterr.CategoryNotFound || errors.Is(err, agenterr.ErrNotFound) {
			return executor.Result{Message: fmt.Sprintf("📄 Wiki node %q was not found.", token)}, nil
		}
		return executor.Result{}, failure
	}

	title := strings.TrimSpace(page.Node.Title)
	if keyword := strings.TrimSpace(params.SearchKeyword); keyword != "" {
		matched := actions.MatchLines(page.Content, keyword, keywordMatchLimit)
		if len(matched) == 0 {
			return executor.Result{Message: fmt.Sprintf("📄 No content containing %q was found in %q.", keyword, title)}, nil
		}
		return executor.Result{Message: fmt.Sprintf("📄 Matching content in %q:\n\n%s", title, strings.Join(matched, "\n"))}, nil
	}
	return executor.Result{Message: "📄 " + page.String()}, nil
}
