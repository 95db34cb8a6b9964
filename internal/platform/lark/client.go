package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"
	larkdocx "github.com/larksuite/oapi-sdk-go/v3/service/docx/v1"
	larkwiki "github.com/larksuite/oapi-sdk-go/v3/service/wiki/v2"

	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/platform"
)

const (
	importDocumentPath  = "/open-apis/docx/builtin/import"
	searchDocumentsPath = "/open-apis/suite/docs-api/search/object"
)

// wikiNodeNotFoundCodes are the wiki API codes for a node that does not exist.
var wikiNodeNotFoundCodes = map[int]struct{}{
	131005: {},
}

type Config struct {
	AppID      string
	AppSecret  string
	BaseDomain string
	Timeout    time.Duration
}

// Client implements platform.Client and platform.Messenger on top of the
// official SDK. Every call runs under its own timeout.
type Client struct {
	sdk     *lark.Client
	timeout time.Duration
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []lark.ClientOptionFunc{
		lark.WithReqTimeout(cfg.Timeout),
		lark.WithLogger(NewSDKLogger(logger)),
	}
	if domain := strings.TrimSpace(cfg.BaseDomain); domain != "" {
		opts = append(opts, lark.WithOpenBaseUrl(strings.TrimRight(domain, "/")))
	}
	return &Client{
		sdk:     lark.NewClient(strings.TrimSpace(cfg.AppID), strings.TrimSpace(cfg.AppSecret), opts...),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

func (c *Client) ImportMarkdown(ctx context.Context, title, markdown string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.sdk.Post(callCtx, importDocumentPath, map[string]any{
		"file_name": title,
		"markdown":  markdown,
	}, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return "", fmt.Errorf("import markdown: %w", err)
	}
	return decodeImportResponse(resp.RawBody)
}

func (c *Client) DocumentRawContent(ctx context.Context, documentID string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req := larkdocx.NewRawContentDocumentReqBuilder().
		DocumentId(documentID).
		Lang(0).
		Build()
	resp, err := c.sdk.Docx.V1.Document.RawContent(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("document raw content: %w", err)
	}
	if !resp.Success() {
		return "", &agenterr.APIError{Code: resp.Code, Msg: resp.Msg}
	}
	if resp.Data == nil {
		return "", nil
	}
	return larkcore.StringValue(resp.Data.Content), nil
}

func (c *Client) WikiNode(ctx context.Context, token string) (platform.WikiNode, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req := larkwiki.NewGetNodeSpaceReqBuilder().
		Token(token).
		Build()
	resp, err := c.sdk.Wiki.V2.Space.GetNode(callCtx, req)
	if err != nil {
		return platform.WikiNode{}, fmt.Errorf("get wiki node: %w", err)
	}
	if !resp.Success() {
		apiErr := &agenterr.APIError{Code: resp.Code, Msg: resp.Msg}
		if _, missing := wikiNodeNotFoundCodes[resp.Code]; missing {
			return platform.WikiNode{}, fmt.Errorf("%w: wiki node %s: %w", agenterr.ErrNotFound, token, apiErr)
		}
		return platform.WikiNode{}, apiErr
	}
	if resp.Data == nil || resp.Data.Node == nil {
		return platform.WikiNode{}, fmt.Errorf("%w: wiki node %s", agenterr.ErrNotFound, token)
	}
	node := resp.Data.Node
	return platform.WikiNode{
		SpaceID:   larkcore.StringValue(node.SpaceId),
		NodeToken: larkcore.StringValue(node.NodeToken),
		ObjToken:  larkcore.StringValue(node.ObjToken),
		ObjType:   larkcore.StringValue(node.ObjType),
		Title:     larkcore.StringValue(node.Title),
	}, nil
}

func (c *Client) CreateApp(ctx context.Context, name, folderToken string) (platform.App, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	appBuilder := larkbitable.NewReqAppBuilder().Name(name)
	if folder := strings.TrimSpace(folderToken); folder != "" {
		appBuilder.FolderToken(folder)
	}
	req := larkbitable.NewCreateAppReqBuilder().
		ReqApp(appBuilder.Build()).
		Build()
	resp, err := c.sdk.Bitable.V1.App.Create(callCtx, req)
	if err != nil {
		return platform.App{}, fmt.Errorf("create bitable app: %w", err)
	}
	if !resp.Success() {
		return platform.App{}, &agenterr.APIError{Code: resp.Code, Msg: resp.Msg}
	}
	if resp.Data == nil || resp.Data.App == nil {
		return platform.App{}, fmt.Errorf("create bitable app: empty response")
	}
	return platform.App{
		AppToken: larkcore.StringValue(resp.Data.App.AppToken),
		Name:     larkcore.StringValue(resp.Data.App.Name),
		URL:      larkcore.StringValue(resp.Data.App.Url),
	}, nil
}

func (c *Client) CreateTable(ctx context.Context, appToken, name string, fields []platform.Field) (platform.Table, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	headers := make([]*larkbitable.AppTableCreateHeader, 0, len(fields))
	for _, field := range fields {
		headers = append(headers, larkbitable.NewAppTableCreateHeaderBuilder().
			FieldName(field.Name).
			Type(field.Type).
			Build())
	}
	table := larkbitable.NewReqTableBuilder().
		Name(name).
		Fields(headers).
		Build()
	req := larkbitable.NewCreateAppTableReqBuilder().
		AppToken(appToken).
		Body(larkbitable.NewCreateAppTableReqBodyBuilder().Table(table).Build()).
		Build()
	resp, err := c.sdk.Bitable.V1.AppTable.Create(callCtx, req)
	if err != nil {
		return platform.Table{}, fmt.Errorf("create bitable table: %w", err)
	}
	if !resp.Success() {
		return platform.Table{}, &agenterr.APIError{Code: resp.Code, Msg: resp.Msg}
	}
	created := platform.Table{Name: name}
	if resp.Data != nil {
		created.TableID = larkcore.StringValue(resp.Data.TableId)
	}
	return created, nil
}

func (c *Client) ListTables(ctx context.Context, appToken string, pageSize int) ([]platform.Table, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req := larkbitable.NewListAppTableReqBuilder().
		AppToken(appToken).
		PageSize(pageSize).
		Build()
	resp, err := c.sdk.Bitable.V1.AppTable.List(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("list bitable tables: %w", err)
	}
	if !resp.Success() {
		return nil, &agenterr.APIError{Code: resp.Code, Msg: resp.Msg}
	}
	if resp.Data == nil {
		return nil, nil
	}
	tables := make([]platform.Table, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		if item == nil {
			continue
		}
		tables = append(tables, platform.Table{
			TableID: larkcore.StringValue(item.TableId),
			Name:    larkcore.StringValue(item.Name),
		})
	}
	return tables, nil
}

func (c *Client) SearchRecords(ctx context.Context, input platform.SearchRecordsInput) (platform.RecordPage, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	body := larkbitable.NewSearchAppTableRecordReqBodyBuilder()
	if len(input.FieldNames) > 0 {
		body.FieldNames(input.FieldNames)
	}
	if filter := toSDKFilter(input.Filter); filter != nil {
		body.Filter(filter)
	}
	builder := larkbitable.NewSearchAppTableRecordReqBuilder().
		AppToken(input.AppToken).
		TableId(input.TableID).
		Body(body.Build())
	if input.PageSize > 0 {
		builder.PageSize(input.PageSize)
	}
	resp, err := c.sdk.Bitable.V1.AppTableRecord.Search(callCtx, builder.Build())
	if err != nil {
		return platform.RecordPage{}, fmt.Errorf("search bitable records: %w", err)
	}
	if !resp.Success() {
		return platform.RecordPage{}, &agenterr.APIError{Code: resp.Code, Msg: resp.Msg}
	}
	page := platform.RecordPage{}
	if resp.Data == nil {
		return page, nil
	}
	page.Total = larkcore.IntValue(resp.Data.Total)
	for _, item := range resp.Data.Items {
		if item == nil {
			continue
		}
		page.Items = append(page.Items, platform.Record{
			RecordID: larkcore.StringValue(item.RecordId),
			Fields:   item.Fields,
		})
	}
	return page, nil
}

func (c *Client) SearchDocuments(ctx context.Context, keyword string, count int) ([]platform.DocumentRef, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.sdk.Post(callCtx, searchDocumentsPath, map[string]any{
		"search_key": keyword,
		"count":      count,
		"offset":     0,
	}, larkcore.AccessTokenTypeTenant)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	return decodeSearchDocumentsResponse(resp.RawBody)
}

func toSDKFilter(filter *platform.Filter) *larkbitable.FilterInfo {
	if filter == nil || len(filter.Conditions) == 0 {
		return nil
	}
	conjunction := strings.ToLower(strings.TrimSpace(filter.Conjunction))
	if conjunction == "" {
		conjunction = "and"
	}
	conditions := make([]*larkbitable.Condition, 0, len(filter.Conditions))
	for _, condition := range filter.Conditions {
		builder := larkbitable.NewConditionBuilder().
			FieldName(condition.FieldName).
			Operator(condition.Operator)
		if len(condition.Value) > 0 {
			builder.Value(condition.Value)
		}
		conditions = append(conditions, builder.Build())
	}
	return larkbitable.NewFilterInfoBuilder().
		Conjunction(conjunction).
		Conditions(conditions).
		Build()
}

type importResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		DocumentID string `json:"document_id"`
	} `json:"data"`
}

// decodeImportResponse returns an empty ID without error when the platform
// accepted the call but did not hand back a document.
func decodeImportResponse(raw []byte) (string, error) {
	var payload importResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode import response: %w", err)
	}
	if payload.Code != 0 {
		return "", &agenterr.APIError{Code: payload.Code, Msg: payload.Msg}
	}
	return strings.TrimSpace(payload.Data.DocumentID), nil
}

type searchDocumentsResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		DocsEntities []struct {
			DocsToken string `json:"docs_token"`
			DocsType  string `json:"docs_type"`
			Title     string `json:"title"`
		} `json:"docs_entities"`
	} `json:"data"`
}

func decodeSearchDocumentsResponse(raw []byte) ([]platform.DocumentRef, error) {
	var payload searchDocumentsResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if payload.Code != 0 {
		return nil, &agenterr.APIError{Code: payload.Code, Msg: payload.Msg}
	}
	refs := make([]platform.DocumentRef, 0, len(payload.Data.DocsEntities))
	for _, entity := range payload.Data.DocsEntities {
		refs = append(refs, platform.DocumentRef{
			Token: entity.DocsToken,
			Type:  entity.DocsType,
			Title: entity.Title,
		})
	}
	return refs, nil
}

var (
	_ platform.Client    = (*Client)(nil)
	_ platform.Messenger = (*Client)(nil)
)
