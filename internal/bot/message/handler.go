// Package message implements the command router for message events:
// text commands on one branch, the image intake pipeline on the other.
package message

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/wb-go/wbf/zlog"

	"github.com/teerapatch/line-webhook/internal/async"
	"github.com/teerapatch/line-webhook/internal/config"
	"github.com/teerapatch/line-webhook/internal/model"
	"github.com/teerapatch/line-webhook/internal/repository/asset"
	"github.com/teerapatch/line-webhook/internal/storage/media"
)

// Command tokens recognized on the text branch. Job-selection tokens
// live in model.ParseJobKind.
const (
	triggerRecallCurrent  = "recall-current"
	triggerRecallPrevious = "recall-previous"
	tokenDone             = "done"
)

const (
	replyNoImage     = "No image found yet. Send me a picture first."
	replyNoPrevious  = "There is no earlier image on file."
	replyPrevCaption = "Here is your previous image:"
	replyDone        = "Okay, nothing more to do."
	replyImageStored = "Got your image. It is stored and ready."
	replyImageFailed = "Sorry, something went wrong while processing your image. Please try again."
	replyMenuPrompt  = "What would you like to do next?"
)

// messenger sends replies and fetches message binary content.
type messenger interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	MessageContent(ctx context.Context, messageID string) ([]byte, error)
}

// mediaStorage uploads image content and returns the stored descriptor.
type mediaStorage interface {
	SaveImage(ctx context.Context, userID, messageID string, data []byte) (media.Object, error)
}

// assetRepository persists and looks up stored media assets.
type assetRepository interface {
	SaveAsset(ctx context.Context, a model.MediaAsset) (uuid.UUID, error)
	LatestByUser(ctx context.Context, userID string, offset int) (model.MediaAsset, error)
}

// jobRepository persists job selections.
type jobRepository interface {
	SaveJob(ctx context.Context, j model.Job) (uuid.UUID, error)
	CountRecent(ctx context.Context, userID string, kind model.JobKind, since time.Time) (int, error)
}

// formsClient forwards upload results to the spreadsheet logger.
type formsClient interface {
	Submit(ctx context.Context, payload any) error
}

// Handler routes a single message event. It never lets a failure
// escape: every external call is degraded to a log entry or a generic
// failure reply.
type Handler struct {
	line   messenger
	media  mediaStorage
	assets assetRepository
	jobs   jobRepository
	forms  formsClient
	cfg    config.Bot
}

// NewHandler creates a Handler with the given collaborators.
func NewHandler(line messenger, media mediaStorage, assets assetRepository, jobs jobRepository, forms formsClient, cfg config.Bot) *Handler {
	return &Handler{
		line:   line,
		media:  media,
		assets: assets,
		jobs:   jobs,
		forms:  forms,
		cfg:    cfg,
	}
}

// Handle processes one message event. A message payload is either text
// or image, never both.
func (h *Handler) Handle(ctx context.Context, ev model.Event) {
	if ev.Message == nil {
		zlog.Logger.Warn().Msg("message event without message payload")
		return
	}

	switch ev.Message.Type {
	case model.MessageTypeText:
		h.handleText(ctx, ev)
	case model.MessageTypeImage:
		h.handleImage(ctx, ev)
	default:
		zlog.Logger.Info().
			Str("type", string(ev.Message.Type)).
			Msg("unsupported message type, skipping")
	}
}

// handleText evaluates text commands in precedence order; the first
// match wins. Unrecognized text is considered handled.
func (h *Handler) handleText(ctx context.Context, ev model.Event) {
	token := strings.TrimSpace(ev.Message.Text)
	if !h.cfg.CaseSensitive {
		token = strings.ToLower(token)
	}

	if token == triggerRecallCurrent {
		h.recallCurrent(ctx, ev)
		return
	}

	if token == triggerRecallPrevious {
		h.recallPrevious(ctx, ev)
		return
	}

	if kind, ok := model.ParseJobKind(token); ok {
		h.selectJob(ctx, ev, kind)
		return
	}

	if token == tokenDone {
		h.reply(ctx, ev.ReplyToken, messaging_api.TextMessage{Text: replyDone})
		return
	}
}

// recallCurrent replies with the user's most recent stored image, or a
// not-found text when there is none.
func (h *Handler) recallCurrent(ctx context.Context, ev model.Event) {
	a, err := h.assets.LatestByUser(ctx, ev.Source.UserID, 0)
	if err != nil {
		if errors.Is(err, asset.ErrAssetNotFound) {
			h.reply(ctx, ev.ReplyToken, messaging_api.TextMessage{Text: replyNoImage})
			return
		}

		zlog.Logger.Err(err).Str("user_id", ev.Source.UserID).Msg("failed to look up latest asset")
		return
	}

	if a.URL == "" {
		h.reply(ctx, ev.ReplyToken, messaging_api.TextMessage{Text: replyNoImage})
		return
	}

	h.reply(ctx, ev.ReplyToken, imageMessage(a))
}

// recallPrevious replies with the user's second-most-recent image as a
// caption plus image pair, or an explicit no-prior-image text.
func (h *Handler) recallPrevious(ctx context.Context, ev model.Event) {
	a, err := h.assets.LatestByUser(ctx, ev.Source.UserID, 1)
	if err != nil {
		if errors.Is(err, asset.ErrAssetNotFound) {
			h.reply(ctx, ev.ReplyToken, messaging_api.TextMessage{Text: replyNoPrevious})
			return
		}

		zlog.Logger.Err(err).Str("user_id", ev.Source.UserID).Msg("failed to look up previous asset")
		return
	}

	h.reply(ctx, ev.ReplyToken,
		messaging_api.TextMessage{Text: replyPrevCaption},
		imageMessage(a),
	)
}

// selectJob records the selection with status processing and replies
// with an acknowledgement. The ack is sent even when persistence fails.
func (h *Handler) selectJob(ctx context.Context, ev model.Event, kind model.JobKind) {
	persist := true

	if h.cfg.DedupeWindow > 0 {
		n, err := h.jobs.CountRecent(ctx, ev.Source.UserID, kind, time.Now().Add(-h.cfg.DedupeWindow))
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to check recent job selections")
		} else if n > 0 {
			persist = false
		}
	}

	if persist {
		j := model.Job{
			UserID: ev.Source.UserID,
			Kind:   kind,
			Status: model.StatusProcessing,
		}

		if _, err := h.jobs.SaveJob(ctx, j); err != nil {
			zlog.Logger.Err(err).
				Str("user_id", ev.Source.UserID).
				Str("kind", string(kind)).
				Msg("failed to save job record")
		}
	}

	ack := fmt.Sprintf("Got it, %s is now processing.", kind.Label())
	h.reply(ctx, ev.ReplyToken, messaging_api.TextMessage{Text: ack})
}

// handleImage runs the intake pipeline and degrades any failure to a
// single generic failure reply. The user always gets an answer.
func (h *Handler) handleImage(ctx context.Context, ev model.Event) {
	if err := h.processImage(ctx, ev); err != nil {
		zlog.Logger.Err(err).
			Str("message_id", ev.Message.ID).
			Msg("image pipeline failed")

		h.reply(ctx, ev.ReplyToken, messaging_api.TextMessage{Text: replyImageFailed})
	}
}

func (h *Handler) processImage(ctx context.Context, ev model.Event) error {
	data, err := h.line.MessageContent(ctx, ev.Message.ID)
	if err != nil {
		return fmt.Errorf("fetch content: %w", err)
	}

	obj, err := h.media.SaveImage(ctx, ev.Source.UserID, ev.Message.ID, data)
	if err != nil {
		return fmt.Errorf("store image: %w", err)
	}

	a := model.MediaAsset{
		UserID:     ev.Source.UserID,
		MessageID:  ev.Message.ID,
		Kind:       model.AssetKindImage,
		URL:        obj.URL,
		ObjectName: obj.ObjectName,
		Metadata: model.AssetMetadata{
			Format:       obj.Format,
			Width:        obj.Width,
			Height:       obj.Height,
			Size:         obj.Size,
			ThumbnailURL: obj.ThumbnailURL,
		},
	}

	// Best-effort: the stored object remains usable without the record.
	if _, err := h.assets.SaveAsset(ctx, a); err != nil {
		zlog.Logger.Err(err).
			Str("message_id", ev.Message.ID).
			Msg("failed to save asset record")
	}

	async.Detach("forms.upload", func() error {
		return h.forms.Submit(ctx, a)
	})

	msgs := []messaging_api.MessageInterface{
		messaging_api.TextMessage{Text: replyImageStored},
		messaging_api.StickerMessage{PackageId: "446", StickerId: "1988"},
		messaging_api.StickerMessage{PackageId: "446", StickerId: "1989"},
		menuMessage(),
	}

	if err := h.line.Reply(ctx, ev.ReplyToken, msgs); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	return nil
}

func (h *Handler) reply(ctx context.Context, replyToken string, messages ...messaging_api.MessageInterface) {
	if err := h.line.Reply(ctx, replyToken, messages); err != nil {
		zlog.Logger.Err(err).Msg("failed to send reply")
	}
}

// imageMessage builds an image reply from a stored asset, falling back
// to the full-size URL when no thumbnail was recorded.
func imageMessage(a model.MediaAsset) messaging_api.ImageMessage {
	preview := a.Metadata.ThumbnailURL
	if preview == "" {
		preview = a.URL
	}

	return messaging_api.ImageMessage{
		OriginalContentUrl: a.URL,
		PreviewImageUrl:    preview,
	}
}

// menuMessage builds the quick-reply selection menu offering the job
// tokens plus the recall and done options.
func menuMessage() messaging_api.TextMessage {
	choices := []struct {
		label string
		text  string
	}{
		{"Job 1", "1"},
		{"Job 2", "2"},
		{"Job 3", "3"},
		{"Current image", triggerRecallCurrent},
		{"Previous image", triggerRecallPrevious},
		{"Done", tokenDone},
	}

	items := make([]messaging_api.QuickReplyItem, 0, len(choices))
	for _, c := range choices {
		items = append(items, messaging_api.QuickReplyItem{
			Action: messaging_api.MessageAction{
				Label: c.label,
				Text:  c.text,
			},
		})
	}

	return messaging_api.TextMessage{
		Text:       replyMenuPrompt,
		QuickReply: &messaging_api.QuickReply{Items: items},
	}
}
