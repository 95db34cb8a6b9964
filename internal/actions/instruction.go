// Package actions decodes model replies into typed instructions.
package actions

import (
	"encoding/json"

	"github.com/dwizi/larkbot/internal/platform"
)

const (
	ActionCreateDocument  = "create_document"
	ActionReadDocument    = "read_document"
	ActionReadWiki        = "read_wiki"
	ActionCreateBitable   = "create_bitable"
	ActionSearchDocuments = "search_documents"
	ActionSearchBitable   = "search_bitable"
)

// Instruction is a closed set: only the types in this file implement it.
type Instruction interface {
	Action() string
	instruction()
}

type CreateDocument struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ReadDocument struct {
	DocumentID    string `json:"document_id"`
	SearchKeyword string `json:"search_keyword"`
}

type ReadWiki struct {
	SpaceID       string `json:"space_id"`
	NodeToken     string `json:"node_token"`
	SearchKeyword string `json:"search_keyword"`
}

type CreateBitable struct {
	Name        string           `json:"name"`
	TableName   string           `json:"table_name"`
	Fields      []platform.Field `json:"fields"`
	FolderToken string           `json:"folder_token"`
}

type SearchDocuments struct {
	Keyword string `json:"keyword"`
}

type SearchBitable struct {
	AppToken   string           `json:"app_token"`
	TableID    string           `json:"table_id"`
	Filter     *platform.Filter `json:"filter"`
	FieldNames []string         `json:"field_names"`
}

// Unrecognized carries an action name outside the known set, including the
// empty name when the reply had no action field.
type Unrecognized struct {
	Name   string
	Params json.RawMessage
}

// Invalid is a known action whose params could not be decoded.
type Invalid struct {
	Name   string
	Reason string
}

func (CreateDocument) Action() string  { return ActionCreateDocument }
func (ReadDocument) Action() string    { return ActionReadDocument }
func (ReadWiki) Action() string        { return ActionReadWiki }
func (CreateBitable) Action() string   { return ActionCreateBitable }
func (SearchDocuments) Action() string { return ActionSearchDocuments }
func (SearchBitable) Action() string   { return ActionSearchBitable }
func (u Unrecognized) Action() string  { return u.Name }
func (i Invalid) Action() string       { return i.Name }

func (CreateDocument) instruction()  {}
func (ReadDocument) instruction()    {}
func (ReadWiki) instruction()        {}
func (CreateBitable) instruction()   {}
func (SearchDocuments) instruction() {}
func (SearchBitable) instruction()   {}
func (Unrecognized) instruction()    {}
func (Invalid) instruction()         {}
