// Package line wraps the LINE messaging API behind the small surface
// the bot needs: reply, push, and binary content download.
package line

import (
	"context"
	"fmt"
	"io"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/wb-go/wbf/retry"
)

// Client calls the LINE messaging and blob APIs with retries.
// The generated SDK clients do not take a context; the ctx parameters
// exist for signature symmetry with the other collaborators.
type Client struct {
	api      *messaging_api.MessagingApiAPI
	blob     *messaging_api.MessagingApiBlobAPI
	strategy retry.Strategy
}

// NewClient creates a Client authenticated with the channel access token.
func NewClient(channelToken string, s retry.Strategy) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging api client: %w", err)
	}

	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob api client: %w", err)
	}

	return &Client{
		api:      api,
		blob:     blob,
		strategy: s,
	}, nil
}

// Reply sends a reply message batch for the given reply token.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	err := retry.Do(func() error {
		_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
			ReplyToken: replyToken,
			Messages:   messages,
		})
		return err
	}, c.strategy)
	if err != nil {
		return fmt.Errorf("failed to send reply message: %w", err)
	}

	return nil
}

// Push sends a message batch directly to the given user.
func (c *Client) Push(ctx context.Context, userID string, messages []messaging_api.MessageInterface) error {
	err := retry.Do(func() error {
		_, err := c.api.PushMessage(&messaging_api.PushMessageRequest{
			To:       userID,
			Messages: messages,
		}, "")
		return err
	}, c.strategy)
	if err != nil {
		return fmt.Errorf("failed to push message: %w", err)
	}

	return nil
}

// MessageContent downloads the binary content of a message.
func (c *Client) MessageContent(ctx context.Context, messageID string) ([]byte, error) {
	var data []byte

	err := retry.Do(func() error {
		resp, err := c.blob.GetMessageContent(messageID)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		return err
	}, c.strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message content: %w", err)
	}

	return data, nil
}
