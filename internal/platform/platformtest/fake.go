// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"sync"

	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/platform"
)

type ImportCall struct {
	Title    string
	Markdown string
}

type CreateTableCall struct {
	AppToken string
	Name     string
	Fields   []platform.Field
}

// Client answers from its fields. A non-nil Err is returned by every call.
type Client struct {
	mu sync.Mutex

	Err error

	ImportedID string
	Documents  map[string]string
	Nodes      map[string]platform.WikiNode
	App        platform.App
	Tables     []platform.Table
	Records    platform.RecordPage
	SearchHits []platform.DocumentRef

	Imports       []ImportCall
	RawReads      []string
	CreatedApps   []string
	CreatedTables []CreateTableCall
	RecordQueries []platform.SearchRecordsInput
	DocSearches   []string
}

var _ platform.Client = (*Client)(nil)

func (c *Client) ImportMarkdown(ctx context.Context, title, markdown string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Imports = append(c.Imports, ImportCall{Title: title, Markdown: markdown})
	if c.Err != nil {
		return "", c.Err
	}
	return c.ImportedID, nil
}

func (c *Client) DocumentRawContent(ctx context.Context, documentID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RawReads = append(c.RawReads, documentID)
	if c.Err != nil {
		return "", c.Err
	}
	content, ok := c.Documents[documentID]
	if !ok {
		return "", &agenterr.APIError{Code: 1770002, Msg: "not found"}
	}
	return content, nil
}

func (c *Client) WikiNode(ctx context.Context, token string) (platform.WikiNode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return platform.WikiNode{}, c.Err
	}
	node, ok := c.Nodes[token]
	if !ok {
		return platform.WikiNode{}, agenterr.ErrNotFound
	}
	return node, nil
}

func (c *Client) CreateApp(ctx context.Context, name, folderToken string) (platform.App, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CreatedApps = append(c.CreatedApps, name)
	if c.Err != nil {
		return platform.App{}, c.Err
	}
	app := c.App
	app.Name = name
	return app, nil
}

func (c *Client) CreateTable(ctx context.Context, appToken, name string, fields []platform.Field) (platform.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CreatedTables = append(c.CreatedTables, CreateTableCall{AppToken: appToken, Name: name, Fields: fields})
	if c.Err != nil {
		return platform.Table{}, c.Err
	}
	return platform.Table{TableID: "tbl_created", Name: name}, nil
}

func (c *Client) ListTables(ctx context.Context, appToken string, pageSize int) ([]platform.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Tables, nil
}

func (c *Client) SearchRecords(ctx context.Context, input platform.SearchRecordsInput) (platform.RecordPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RecordQueries = append(c.RecordQueries, input)
	if c.Err != nil {
		return platform.RecordPage{}, c.Err
	}
	return c.Records, nil
}

func (c *Client) SearchDocuments(ctx context.Context, keyword string, count int) ([]platform.DocumentRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DocSearches = append(c.DocSearches, keyword)
	if c.Err != nil {
		return nil, c.Err
	}
	if len(c.SearchHits) > count {
		return c.SearchHits[:count], nil
	}
	return c.SearchHits, nil
}
