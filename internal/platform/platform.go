// Package platform describes the Lark/Feishu open API operations the bot
// relies on. Implementations live in subpackages.
package platform

import "context"

// Bitable field types used by the bot.
const (
	FieldTypeText         = 1
	FieldTypeSingleSelect = 3
)

type WikiNode struct {
	SpaceID   string
	NodeToken string
	ObjToken  string
	ObjType   string
	Title     string
}

type App struct {
	AppToken string
	Name     string
	URL      string
}

type Field struct {
	Name string `json:"field_name"`
	Type int    `json:"type"`
}

type Table struct {
	TableID string
	Name    string
}

type Record struct {
	RecordID string         `json:"record_id"`
	Fields   map[string]any `json:"fields"`
}

type RecordPage struct {
	Items []Record
	Total int
}

type Condition struct {
	FieldName string   `json:"field_name"`
	Operator  string   `json:"operator"`
	Value     []string `json:"value,omitempty"`
}

type Filter struct {
	Conjunction string      `json:"conjunction,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`
}

type SearchRecordsInput struct {
	AppToken   string
	TableID    string
	Filter     *Filter
	FieldNames []string
	PageSize   int
}

type DocumentRef struct {
	Token string
	Type  string
	Title string
}

// Client is the content side of the open API.
type Client interface {
	ImportMarkdown(ctx context.Context, title, markdown string) (string, error)
	DocumentRawContent(ctx context.Context, documentID string) (string, error)
	WikiNode(ctx context.Context, token string) (WikiNode, error)
	CreateApp(ctx context.Context, name, folderToken string) (App, error)
	CreateTable(ctx context.Context, appToken, name string, fields []Field) (Table, error)
	ListTables(ctx context.Context, appToken string, pageSize int) ([]Table, error)
	SearchRecords(ctx context.Context, input SearchRecordsInput) (RecordPage, error)
	SearchDocuments(ctx context.Context, keyword string, count int) ([]DocumentRef, error)
}

// Messenger is the IM side of the open API.
type Messenger interface {
	SendText(ctx context.Context, chatID, text string) error
	ReplyText(ctx context.Context, messageID, text string) error
}
