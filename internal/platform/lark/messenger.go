package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/dwizi/larkbot/internal/agenterr"
)

func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	content, err := textContent(text)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(content).
			Build()).
		Build()
	resp, err := c.sdk.Im.V1.Message.Create(callCtx, req)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	if !resp.Success() {
		return &agenterr.APIError{Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

func (c *Client) ReplyText(ctx context.Context, messageID, text string) error {
	content, err := textContent(text)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req := larkim.NewReplyMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewReplyMessageReqBodyBuilder().
			MsgType(larkim.MsgTypeText).
			Content(content).
			Build()).
		Build()
	resp, err := c.sdk.Im.V1.Message.Reply(callCtx, req)
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	if !resp.Success() {
		return &agenterr.APIError{Code: resp.Code, Msg: resp.Msg}
	}
	return nil
}

func textContent(text string) (string, error) {
	encoded, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("encode text content: %w", err)
	}
	return string(encoded), nil
}
