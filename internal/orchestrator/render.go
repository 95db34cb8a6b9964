package orchestrator

import (
	"fmt"
	"strings"

	"github.com/dwizi/larkbot/internal/actions"
	"github.com/dwizi/larkbot/internal/agenterr"
)

const (
	ContentRetrievedPrefix = "📄 Document content retrieved:\n\n"

	ApologyMessage          = "Sorry, something went wrong while processing your message. Please try again later."
	ModelUnavailableMessage = "❌ The language model is not configured. Please contact the bot administrator."
	FetchFailedMessage      = "❌ Unable to read the linked content. Please check the link or its permission settings."
	LinkErrorMessage        = "❌ Something went wrong while handling the link. Please try again later."

	readDocumentGuidance = "❌ Unable to read the document. The bot can only access documents explicitly shared with it. Suggestions:\n" +
		"1. Copy the document content to me for analysis\n" +
		"2. Add the bot to the document as a collaborator\n" +
		"3. Ask me to create a new document for you"
	searchDocumentsGuidance = "❌ Search failed. The bot needs user authorization to access documents. Please open the document in Lark yourself, or copy its content to me for analysis."
)

// RenderFailure turns an executor error into display text. Every rendered
// failure starts with ❌.
func RenderFailure(err error) string {
	failure, ok := agenterr.As(err)
	if !ok {
		return "❌ " + ApologyMessage
	}
	// Document reads and searches always answer with the access guidance,
	// whatever went wrong.
	switch failure.Op {
	case actions.ActionReadDocument:
		return readDocumentGuidance
	case actions.ActionSearchDocuments:
		return searchDocumentsGuidance
	}
	if failure.Category == agenterr.CategoryInvalidParams {
		name := failure.Op
		if name == "" {
			name = "the action"
		}
		return fmt.Sprintf("❌ Invalid parameters for %s: %s", name, strings.TrimSpace(failure.Detail))
	}

	switch failure.Op {
	case actions.ActionCreateDocument:
		switch failure.Category {
		case agenterr.CategoryUnexpectedResponse:
			return "❌ Document creation failed: the API returned an unexpected response."
		case agenterr.CategoryPlatform:
			detail := strings.TrimSpace(failure.Detail)
			if detail == "" {
				detail = "platform error"
			}
			return "❌ Failed to create document: " + detail
		default:
			return "❌ Failed to create document: network error"
		}
	case actions.ActionReadWiki:
		return "❌ Failed to read the wiki node. Please try again later."
	case actions.ActionCreateBitable:
		return "❌ Failed to create the table. Please check the permission settings."
	case actions.ActionSearchBitable:
		return "❌ Table search failed. Please check the parameters or permission settings."
	default:
		return "❌ The action failed. Please try again later."
	}
}
