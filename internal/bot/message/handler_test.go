package message

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/wb-go/wbf/zlog"

	"github.com/teerapatch/line-webhook/internal/config"
	"github.com/teerapatch/line-webhook/internal/model"
	"github.com/teerapatch/line-webhook/internal/repository/asset"
	"github.com/teerapatch/line-webhook/internal/storage/media"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

type fakeMessenger struct {
	mu         sync.Mutex
	replies    [][]messaging_api.MessageInterface
	tokens     []string
	replyErr   error
	content    []byte
	contentErr error
}

func (f *fakeMessenger) Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, replyToken)
	f.replies = append(f.replies, messages)

	return f.replyErr
}

func (f *fakeMessenger) MessageContent(ctx context.Context, messageID string) ([]byte, error) {
	return f.content, f.contentErr
}

type fakeMedia struct {
	obj   media.Object
	err   error
	calls int
}

func (f *fakeMedia) SaveImage(ctx context.Context, userID, messageID string, data []byte) (media.Object, error) {
	f.calls++
	if f.err != nil {
		return media.Object{}, f.err
	}

	return f.obj, nil
}

type fakeAssets struct {
	saved     []model.MediaAsset
	saveErr   error
	byOffset  map[int]model.MediaAsset
	lookupErr error
}

func (f *fakeAssets) SaveAsset(ctx context.Context, a model.MediaAsset) (uuid.UUID, error) {
	if f.saveErr != nil {
		return uuid.Nil, f.saveErr
	}
	f.saved = append(f.saved, a)

	return uuid.New(), nil
}

func (f *fakeAssets) LatestByUser(ctx context.Context, userID string, offset int) (model.MediaAsset, error) {
	if f.lookupErr != nil {
		return model.MediaAsset{}, f.lookupErr
	}
	a, ok := f.byOffset[offset]
	if !ok {
		return model.MediaAsset{}, asset.ErrAssetNotFound
	}

	return a, nil
}

type fakeJobs struct {
	saved    []model.Job
	saveErr  error
	recent   int
	countErr error
}

func (f *fakeJobs) SaveJob(ctx context.Context, j model.Job) (uuid.UUID, error) {
	if f.saveErr != nil {
		return uuid.Nil, f.saveErr
	}
	f.saved = append(f.saved, j)

	return uuid.New(), nil
}

func (f *fakeJobs) CountRecent(ctx context.Context, userID string, kind model.JobKind, since time.Time) (int, error) {
	return f.recent, f.countErr
}

type fakeForms struct {
	got chan any
}

func (f *fakeForms) Submit(ctx context.Context, payload any) error {
	f.got <- payload
	return nil
}

type fixture struct {
	h      *Handler
	line   *fakeMessenger
	media  *fakeMedia
	assets *fakeAssets
	jobs   *fakeJobs
	forms  *fakeForms
}

func newFixture(cfg config.Bot) *fixture {
	f := &fixture{
		line:   &fakeMessenger{},
		media:  &fakeMedia{},
		assets: &fakeAssets{byOffset: map[int]model.MediaAsset{}},
		jobs:   &fakeJobs{},
		forms:  &fakeForms{got: make(chan any, 4)},
	}
	f.h = NewHandler(f.line, f.media, f.assets, f.jobs, f.forms, cfg)

	return f
}

func textEvent(text string) model.Event {
	return model.Event{
		Type:       model.EventTypeMessage,
		ReplyToken: "rt-1",
		Source:     model.Source{Type: "user", UserID: "U1"},
		Message:    &model.Message{ID: "m-1", Type: model.MessageTypeText, Text: text},
	}
}

func imageEvent() model.Event {
	return model.Event{
		Type:       model.EventTypeMessage,
		ReplyToken: "rt-1",
		Source:     model.Source{Type: "user", UserID: "U1"},
		Message:    &model.Message{ID: "m-img", Type: model.MessageTypeImage},
	}
}

func singleReply(t *testing.T, f *fixture) []messaging_api.MessageInterface {
	t.Helper()
	f.line.mu.Lock()
	defer f.line.mu.Unlock()
	if len(f.line.replies) != 1 {
		t.Fatalf("expected exactly 1 reply, got %d", len(f.line.replies))
	}

	return f.line.replies[0]
}

func textOf(t *testing.T, m messaging_api.MessageInterface) string {
	t.Helper()
	tm, ok := m.(messaging_api.TextMessage)
	if !ok {
		t.Fatalf("expected a text message, got %T", m)
	}

	return tm.Text
}

func TestHandleText_JobSelection(t *testing.T) {
	f := newFixture(config.Bot{})

	f.h.Handle(context.Background(), textEvent("1"))

	if len(f.jobs.saved) != 1 {
		t.Fatalf("expected 1 job record, got %d", len(f.jobs.saved))
	}
	j := f.jobs.saved[0]
	if j.UserID != "U1" {
		t.Errorf("expected job for user U1, got %s", j.UserID)
	}
	if j.Kind != model.JobKindOne {
		t.Errorf("expected kind job-1, got %s", j.Kind)
	}
	if j.Status != model.StatusProcessing {
		t.Errorf("expected status processing, got %s", j.Status)
	}

	msgs := singleReply(t, f)
	if len(msgs) != 1 {
		t.Fatalf("expected a single ack message, got %d", len(msgs))
	}
	if text := textOf(t, msgs[0]); !strings.Contains(text, "job 1") {
		t.Errorf("expected ack to mention job 1, got %q", text)
	}
}

func TestHandleText_JobSelection_PersistFailureStillAcks(t *testing.T) {
	f := newFixture(config.Bot{})
	f.jobs.saveErr = errors.New("db down")

	f.h.Handle(context.Background(), textEvent("2"))

	if len(f.jobs.saved) != 0 {
		t.Errorf("expected no persisted jobs, got %d", len(f.jobs.saved))
	}
	msgs := singleReply(t, f)
	if text := textOf(t, msgs[0]); !strings.Contains(text, "job 2") {
		t.Errorf("expected ack to mention job 2, got %q", text)
	}
}

func TestHandleText_JobSelection_CaseFolding(t *testing.T) {
	f := newFixture(config.Bot{})

	f.h.Handle(context.Background(), textEvent("Job 2"))

	if len(f.jobs.saved) != 1 || f.jobs.saved[0].Kind != model.JobKindTwo {
		t.Fatalf("expected job-2 selection, got %+v", f.jobs.saved)
	}
}

func TestHandleText_JobSelection_CaseSensitiveMode(t *testing.T) {
	f := newFixture(config.Bot{CaseSensitive: true})

	f.h.Handle(context.Background(), textEvent("Job 2"))

	if len(f.jobs.saved) != 0 {
		t.Errorf("expected no jobs in case-sensitive mode, got %d", len(f.jobs.saved))
	}
	if len(f.line.replies) != 0 {
		t.Errorf("expected no replies for unrecognized text, got %d", len(f.line.replies))
	}
}

func TestHandleText_JobSelection_DedupeWindow(t *testing.T) {
	f := newFixture(config.Bot{DedupeWindow: time.Minute})
	f.jobs.recent = 1

	f.h.Handle(context.Background(), textEvent("3"))

	if len(f.jobs.saved) != 0 {
		t.Errorf("expected duplicate selection to be suppressed, got %d records", len(f.jobs.saved))
	}
	msgs := singleReply(t, f)
	if text := textOf(t, msgs[0]); !strings.Contains(text, "job 3") {
		t.Errorf("expected ack even for a suppressed duplicate, got %q", text)
	}
}

func TestHandleText_RecallCurrent_NoHistory(t *testing.T) {
	f := newFixture(config.Bot{})

	f.h.Handle(context.Background(), textEvent("recall-current"))

	msgs := singleReply(t, f)
	if text := textOf(t, msgs[0]); text != replyNoImage {
		t.Errorf("expected the not-found reply, got %q", text)
	}
	if len(f.assets.saved) != 0 || len(f.jobs.saved) != 0 {
		t.Error("recall must not write any records")
	}
}

func TestHandleText_RecallCurrent(t *testing.T) {
	f := newFixture(config.Bot{})
	f.assets.byOffset[0] = model.MediaAsset{
		URL:      "https://cdn.example.com/original/U1/m-1.png",
		Metadata: model.AssetMetadata{ThumbnailURL: "https://cdn.example.com/thumbnails/U1/m-1.jpg"},
	}

	f.h.Handle(context.Background(), textEvent("recall-current"))

	msgs := singleReply(t, f)
	img, ok := msgs[0].(messaging_api.ImageMessage)
	if !ok {
		t.Fatalf("expected an image message, got %T", msgs[0])
	}
	if img.OriginalContentUrl != "https://cdn.example.com/original/U1/m-1.png" {
		t.Errorf("unexpected original URL %q", img.OriginalContentUrl)
	}
	if img.PreviewImageUrl != "https://cdn.example.com/thumbnails/U1/m-1.jpg" {
		t.Errorf("unexpected preview URL %q", img.PreviewImageUrl)
	}
}

func TestHandleText_RecallCurrent_NoThumbnailFallsBackToURL(t *testing.T) {
	f := newFixture(config.Bot{})
	f.assets.byOffset[0] = model.MediaAsset{URL: "https://cdn.example.com/original/U1/m-1.png"}

	f.h.Handle(context.Background(), textEvent("recall-current"))

	msgs := singleReply(t, f)
	img, ok := msgs[0].(messaging_api.ImageMessage)
	if !ok {
		t.Fatalf("expected an image message, got %T", msgs[0])
	}
	if img.PreviewImageUrl != img.OriginalContentUrl {
		t.Errorf("expected preview to fall back to the original URL, got %q", img.PreviewImageUrl)
	}
}

func TestHandleText_RecallPrevious_OnlyOneImageStored(t *testing.T) {
	f := newFixture(config.Bot{})
	f.assets.byOffset[0] = model.MediaAsset{URL: "https://cdn.example.com/original/U1/m-1.png"}

	f.h.Handle(context.Background(), textEvent("recall-previous"))

	msgs := singleReply(t, f)
	if len(msgs) != 1 {
		t.Fatalf("expected a single text reply, got %d messages", len(msgs))
	}
	if text := textOf(t, msgs[0]); text != replyNoPrevious {
		t.Errorf("expected the no-prior-image reply, got %q", text)
	}
}

func TestHandleText_RecallPrevious(t *testing.T) {
	f := newFixture(config.Bot{})
	f.assets.byOffset[1] = model.MediaAsset{URL: "https://cdn.example.com/original/U1/m-0.png"}

	f.h.Handle(context.Background(), textEvent("recall-previous"))

	msgs := singleReply(t, f)
	if len(msgs) != 2 {
		t.Fatalf("expected caption plus image, got %d messages", len(msgs))
	}
	if text := textOf(t, msgs[0]); text != replyPrevCaption {
		t.Errorf("expected the caption text, got %q", text)
	}
	img, ok := msgs[1].(messaging_api.ImageMessage)
	if !ok {
		t.Fatalf("expected an image message, got %T", msgs[1])
	}
	if img.OriginalContentUrl != "https://cdn.example.com/original/U1/m-0.png" {
		t.Errorf("unexpected original URL %q", img.OriginalContentUrl)
	}
}

func TestHandleText_Done(t *testing.T) {
	f := newFixture(config.Bot{})

	f.h.Handle(context.Background(), textEvent("done"))

	msgs := singleReply(t, f)
	if text := textOf(t, msgs[0]); text != replyDone {
		t.Errorf("expected the done reply, got %q", text)
	}
	if len(f.jobs.saved) != 0 {
		t.Error("done must not write any records")
	}
}

func TestHandleText_Unrecognized(t *testing.T) {
	f := newFixture(config.Bot{})

	f.h.Handle(context.Background(), textEvent("hello there"))

	if len(f.line.replies) != 0 {
		t.Errorf("expected no replies, got %d", len(f.line.replies))
	}
	if len(f.jobs.saved) != 0 || len(f.assets.saved) != 0 {
		t.Error("unrecognized text must not write any records")
	}
}

func TestHandleImage_Success(t *testing.T) {
	f := newFixture(config.Bot{})
	f.line.content = []byte("image-bytes")
	f.media.obj = media.Object{
		URL:          "https://cdn.example.com/original/U1/m-img.png",
		ObjectName:   "original/U1/m-img.png",
		Format:       "png",
		Width:        800,
		Height:       600,
		Size:         11,
		ThumbnailURL: "https://cdn.example.com/thumbnails/U1/m-img.jpg",
	}

	f.h.Handle(context.Background(), imageEvent())

	if len(f.assets.saved) != 1 {
		t.Fatalf("expected 1 asset record, got %d", len(f.assets.saved))
	}
	a := f.assets.saved[0]
	if a.UserID != "U1" || a.MessageID != "m-img" {
		t.Errorf("unexpected asset owner %s/%s", a.UserID, a.MessageID)
	}
	if a.Kind != model.AssetKindImage {
		t.Errorf("expected image kind, got %s", a.Kind)
	}
	if a.URL != f.media.obj.URL || a.ObjectName != f.media.obj.ObjectName {
		t.Errorf("asset record does not match the stored object: %+v", a)
	}
	if a.Metadata.Width != 800 || a.Metadata.Format != "png" {
		t.Errorf("unexpected asset metadata %+v", a.Metadata)
	}

	select {
	case payload := <-f.forms.got:
		if _, ok := payload.(model.MediaAsset); !ok {
			t.Errorf("expected the asset forwarded to forms, got %T", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forms submission")
	}

	msgs := singleReply(t, f)
	if len(msgs) != 4 {
		t.Fatalf("expected status, two stickers, and menu, got %d messages", len(msgs))
	}
	if text := textOf(t, msgs[0]); text != replyImageStored {
		t.Errorf("expected the stored confirmation first, got %q", text)
	}
	for i := 1; i <= 2; i++ {
		if _, ok := msgs[i].(messaging_api.StickerMessage); !ok {
			t.Errorf("expected message %d to be a sticker, got %T", i, msgs[i])
		}
	}
	menu, ok := msgs[3].(messaging_api.TextMessage)
	if !ok {
		t.Fatalf("expected the menu text message, got %T", msgs[3])
	}
	if menu.QuickReply == nil || len(menu.QuickReply.Items) != 6 {
		t.Errorf("expected a 6-item quick-reply menu, got %+v", menu.QuickReply)
	}
}

func TestHandleImage_FetchFailure(t *testing.T) {
	f := newFixture(config.Bot{})
	f.line.contentErr = errors.New("content gone")

	f.h.Handle(context.Background(), imageEvent())

	if f.media.calls != 0 {
		t.Error("storage must not be called when the fetch fails")
	}
	if len(f.assets.saved) != 0 {
		t.Error("no asset record must be written when the fetch fails")
	}
	msgs := singleReply(t, f)
	if text := textOf(t, msgs[0]); text != replyImageFailed {
		t.Errorf("expected the generic failure reply, got %q", text)
	}
}

func TestHandleImage_StoreFailure(t *testing.T) {
	f := newFixture(config.Bot{})
	f.line.content = []byte("image-bytes")
	f.media.err = errors.New("bucket unavailable")

	f.h.Handle(context.Background(), imageEvent())

	if len(f.assets.saved) != 0 {
		t.Error("no asset record must be written when the upload fails")
	}
	msgs := singleReply(t, f)
	if len(msgs) != 1 {
		t.Fatalf("expected a single failure reply, got %d messages", len(msgs))
	}
	if text := textOf(t, msgs[0]); text != replyImageFailed {
		t.Errorf("expected the generic failure reply, got %q", text)
	}
}

func TestHandleImage_AssetRecordFailureStillReplies(t *testing.T) {
	f := newFixture(config.Bot{})
	f.line.content = []byte("image-bytes")
	f.media.obj = media.Object{URL: "https://cdn.example.com/original/U1/m-img.png", ObjectName: "original/U1/m-img.png"}
	f.assets.saveErr = errors.New("db down")

	f.h.Handle(context.Background(), imageEvent())

	msgs := singleReply(t, f)
	if len(msgs) != 4 {
		t.Fatalf("expected the full success sequence, got %d messages", len(msgs))
	}
	if text := textOf(t, msgs[0]); text != replyImageStored {
		t.Errorf("expected the stored confirmation, got %q", text)
	}
}
