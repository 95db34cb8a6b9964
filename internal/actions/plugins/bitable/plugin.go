// Package bitable executes the table actions: create a container with one
// table, and search records.
package bitable

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dwizi/larkbot/internal/actions"
	"github.com/dwizi/larkbot/internal/actions/executor"
	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/platform"
)

const (
	DefaultAppName   = "New table"
	DefaultTableName = "Data table"

	searchPageSize = 10
	previewRecords = 5
)

// DefaultFields is the schema used when create_bitable carries no fields.
func DefaultFields() []platform.Field {
	return []platform.Field{
		{Name: "Title", Type: platform.FieldTypeText},
		{Name: "Status", Type: platform.FieldTypeSingleSelect},
	}
}

type Plugin struct {
	client        platform.Client
	viewerBaseURL string
}

func New(client platform.Client, viewerBaseURL string) *Plugin {
	return &Plugin{
		client:        client,
		viewerBaseURL: strings.TrimRight(strings.TrimSpace(viewerBaseURL), "/"),
	}
}

func (p *Plugin) PluginKey() string {
	return "bitable"
}

func (p *Plugin) ActionTypes() []string {
	return []string{actions.ActionCreateBitable, actions.ActionSearchBitable}
}

func (p *Plugin) Execute(ctx context.Context, instruction actions.Instruction) (executor.Result, error) {
	switch typed := instruction.(type) {
	case actions.CreateBitable:
		return p.create(ctx, typed)
	case actions.SearchBitable:
		return p.search(ctx, typed)
	default:
		return executor.Result{}, agenterr.New(instruction.Action(), agenterr.CategoryInvalidParams, "unsupported by bitable plugin")
	}
}

func (p *Plugin) create(ctx context.Context, params actions.CreateBitable) (executor.Result, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		name = DefaultAppName
	}
	tableName := strings.TrimSpace(params.TableName)
	if tableName == "" {
		tableName = DefaultTableName
	}
	fields := params.Fields
	if len(fields) == 0 {
		fields = DefaultFields()
	}

	app, err := p.client.CreateApp(ctx, name, strings.TrimSpace(params.FolderToken))
	if err != nil {
		return executor.Result{}, agenterr.Classify(actions.ActionCreateBitable, err)
	}
	if strings.TrimSpace(app.AppToken) == "" {
		return executor.Result{}, agenterr.New(actions.ActionCreateBitable, agenterr.CategoryUnexpectedResponse, "create app response carried no app token")
	}
	if _, err := p.client.CreateTable(ctx, app.AppToken, tableName, fields); err != nil {
		return executor.Result{}, agenterr.Classify(actions.ActionCreateBitable, err)
	}
	return executor.Result{
		Message: fmt.Sprintf("✅ Bitable created!\n🔗 Link: %s/base/%s", p.viewerBaseURL, app.AppToken),
	}, nil
}

func (p *Plugin) search(ctx context.Context, params actions.SearchBitable) (executor.Result, error) {
	appToken := strings.TrimSpace(params.AppToken)
	tableID := strings.TrimSpace(params.TableID)
	if appToken == "" || tableID == "" {
		return executor.Result{}, agenterr.New(actions.ActionSearchBitable, agenterr.CategoryInvalidParams, "app_token and table_id are required")
	}
	page, err := p.client.SearchRecords(ctx, platform.SearchRecordsInput{
		AppToken:   appToken,
		TableID:    tableID,
		Filter:     params.Filter,
		FieldNames: params.FieldNames,
		PageSize:   searchPageSize,
	})
	if err != nil {
		return executor.Result{}, agenterr.Classify(actions.ActionSearchBitable, err)
	}
	if len(page.Items) == 0 {
		return executor.Result{Message: "📊 No matching records found."}, nil
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "📊 Found %d records:\n\n", len(page.Items))
	for index, record := range page.Items {
		if index == previewRecords {
			break
		}
		encoded, err := json.Marshal(record.Fields)
		if err != nil {
			return executor.Result{}, agenterr.Wrap(actions.ActionSearchBitable, agenterr.CategoryUnexpectedResponse, err)
		}
		fmt.Fprintf(&builder, "%d. %s\n", index+1, encoded)
	}
	return executor.Result{Message: strings.TrimRight(builder.String(), "\n")}, nil
}
