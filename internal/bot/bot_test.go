package bot

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"mediabot/internal/models"
	"mediabot/internal/notify"
	"mediabot/internal/search"
	"mediabot/internal/tier"
	tg "mediabot/pkg/models"
)

type sentMessage struct {
	chatID   int64
	text     string
	keyboard [][]tg.InlineKeyboardButton
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	edits     []sentMessage
	answers   []string
	documents []string
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, kb [][]tg.InlineKeyboardButton) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID, text, kb})
	return int64(len(f.sent)), nil
}

func (f *fakeMessenger) EditMessageText(_ context.Context, chatID, _ int64, text string, kb [][]tg.InlineKeyboardButton) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentMessage{chatID, text, kb})
	return nil
}

func (f *fakeMessenger) AnswerCallbackQuery(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) SendDocument(_ context.Context, _ int64, fileID, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, fileID+":"+caption)
	return nil
}

// mockService lets each test stub only what it needs.
type mockService struct {
	SearchFunc          func(ctx context.Context, caller search.Caller, text string, page int) search.Results
	ResolveCallbackFunc func(ctx context.Context, caller search.Caller, data string) search.Reply
	RedeemFunc          func(ctx context.Context, caller search.Caller, tok string) search.Reply
	TierStatusFunc      func(ctx context.Context, userID int64) (tier.Status, error)
	GrantTierFunc       func(ctx context.Context, userID int64, days int) (tier.Status, error)
	IngestFunc          func(ctx context.Context, caller search.Caller, doc search.Document) error
	StatsFunc           func(ctx context.Context) (search.Stats, error)

	registered []int64
	touched    []int64
}

func (m *mockService) Search(ctx context.Context, caller search.Caller, text string, page int) search.Results {
	return m.SearchFunc(ctx, caller, text, page)
}

func (m *mockService) ResolveCallback(ctx context.Context, caller search.Caller, data string) search.Reply {
	return m.ResolveCallbackFunc(ctx, caller, data)
}

func (m *mockService) Redeem(ctx context.Context, caller search.Caller, tok string) search.Reply {
	return m.RedeemFunc(ctx, caller, tok)
}

func (m *mockService) TierStatus(ctx context.Context, userID int64) (tier.Status, error) {
	return m.TierStatusFunc(ctx, userID)
}

func (m *mockService) GrantTier(ctx context.Context, userID int64, days int) (tier.Status, error) {
	return m.GrantTierFunc(ctx, userID, days)
}

func (m *mockService) Ingest(ctx context.Context, caller search.Caller, doc search.Document) error {
	return m.IngestFunc(ctx, caller, doc)
}

func (m *mockService) Register(_ context.Context, p search.Profile) {
	m.registered = append(m.registered, p.ID)
}

func (m *mockService) Touch(_ context.Context, userID int64) {
	m.touched = append(m.touched, userID)
}

func (m *mockService) Stats(ctx context.Context) (search.Stats, error) {
	return m.StatsFunc(ctx)
}

type fakeBroadcaster struct {
	texts []string
}

func (f *fakeBroadcaster) Run(_ context.Context, text string, onProgress func(notify.Report)) (notify.Report, error) {
	f.texts = append(f.texts, text)
	onProgress(notify.Report{Sent: 5})
	r := notify.Report{Sent: 6, Failed: 1, Skipped: 1, FinishedAt: time.Now()}
	onProgress(r)
	return r, nil
}

const adminID = 100

func newTestBot(svc *mockService) (*Bot, *fakeMessenger, *fakeBroadcaster) {
	msgr := &fakeMessenger{}
	bc := &fakeBroadcaster{}
	b := New(svc, msgr, bc, func(id int64) bool { return id == adminID }, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return b, msgr, bc
}

func textUpdate(from int64, text string) tg.Update {
	return tg.Update{Message: &tg.Message{
		MessageID: 1,
		From:      &tg.User{ID: from, FirstName: "Ann"},
		Chat:      tg.Chat{ID: from, Type: "private"},
		Text:      text,
	}}
}

func TestTextMessageSearches(t *testing.T) {
	var gotText string
	svc := &mockService{SearchFunc: func(_ context.Context, caller search.Caller, text string, page int) search.Results {
		gotText = text
		if caller.ID != 5 || caller.Admin || page != 1 {
			t.Errorf("caller=%+v page=%d", caller, page)
		}
		return search.Results{
			Text:     "1 Results for 'matrix'",
			Keyboard: [][]search.Button{{{Label: "Matrix.mp4", URL: "https://x/?token=t"}}, {{Label: "[1]", Data: "ignore|matrix|1"}}},
		}
	}}
	b, msgr, _ := newTestBot(svc)

	b.HandleUpdate(context.Background(), textUpdate(5, "matrix"))

	if gotText != "matrix" {
		t.Errorf("searched %q", gotText)
	}
	if len(msgr.sent) != 1 {
		t.Fatalf("sent = %+v", msgr.sent)
	}
	want := [][]tg.InlineKeyboardButton{
		{{Text: "Matrix.mp4", URL: "https://x/?token=t"}},
		{{Text: "[1]", CallbackData: "ignore|matrix|1"}},
	}
	if !reflect.DeepEqual(msgr.sent[0].keyboard, want) {
		t.Errorf("keyboard = %+v", msgr.sent[0].keyboard)
	}
	if !reflect.DeepEqual(svc.touched, []int64{5}) {
		t.Errorf("touched = %v", svc.touched)
	}
}

func TestGroupMessagesIgnored(t *testing.T) {
	b, msgr, _ := newTestBot(&mockService{})
	u := textUpdate(5, "matrix")
	u.Message.Chat.Type = "group"
	b.HandleUpdate(context.Background(), u)
	if len(msgr.sent) != 0 {
		t.Errorf("sent = %+v", msgr.sent)
	}
}

func TestCallbackReplies(t *testing.T) {
	replies := map[string]search.Reply{
		"bad":  {Kind: search.ReplyNotice, Text: "Invalid page data."},
		"page": {Kind: search.ReplyEdit, Text: "23 Results for 'x'"},
		"send": {Kind: search.ReplyDocument, Text: "A.mp4", Media: &models.Media{ID: "u1", FileReference: []byte("FILEID")}},
	}
	svc := &mockService{ResolveCallbackFunc: func(_ context.Context, _ search.Caller, data string) search.Reply {
		return replies[data]
	}}
	b, msgr, _ := newTestBot(svc)

	for _, data := range []string{"bad", "page", "send"} {
		b.HandleUpdate(context.Background(), tg.Update{CallbackQuery: &tg.CallbackQuery{
			ID:      "cb-" + data,
			From:    tg.User{ID: 9},
			Message: &tg.Message{MessageID: 77, Chat: tg.Chat{ID: 9, Type: "private"}},
			Data:    data,
		}})
	}

	if !reflect.DeepEqual(msgr.answers, []string{"Invalid page data.", "", ""}) {
		t.Errorf("answers = %q", msgr.answers)
	}
	if len(msgr.edits) != 1 || msgr.edits[0].text != "23 Results for 'x'" {
		t.Errorf("edits = %+v", msgr.edits)
	}
	if !reflect.DeepEqual(msgr.documents, []string{"FILEID:A.mp4"}) {
		t.Errorf("documents = %v", msgr.documents)
	}
	if len(msgr.sent) != 0 {
		t.Errorf("unexpected messages: %+v", msgr.sent)
	}
}

func TestDocumentIngest(t *testing.T) {
	var got search.Document
	svc := &mockService{IngestFunc: func(_ context.Context, caller search.Caller, doc search.Document) error {
		if !caller.Admin {
			t.Error("ingest called for non-admin")
		}
		got = doc
		return nil
	}}
	b, msgr, _ := newTestBot(svc)

	upload := func(from int64) {
		u := textUpdate(from, "")
		u.Message.Caption = "Great Film"
		u.Message.Video = &tg.Video{FileID: "BAAD", FileUniqueID: "AgU1", FileName: "great.mp4", MimeType: "video/mp4"}
		b.HandleUpdate(context.Background(), u)
	}

	upload(5)
	upload(adminID)

	if len(msgr.sent) != 2 || msgr.sent[0].text != msgIngestForbid || msgr.sent[1].text != msgIngestOK {
		t.Fatalf("sent = %+v", msgr.sent)
	}
	if got.ID != "AgU1" || string(got.FileReference) != "BAAD" || got.Caption != "Great Film" || got.FileName != "great.mp4" {
		t.Errorf("doc = %+v", got)
	}
}

func TestStartRedeemsToken(t *testing.T) {
	var gotTok string
	svc := &mockService{RedeemFunc: func(_ context.Context, _ search.Caller, tok string) search.Reply {
		gotTok = tok
		return search.Reply{Kind: search.ReplyDocument, Text: "Clip.mp4", Media: &models.Media{FileReference: []byte("F1")}}
	}}
	b, msgr, _ := newTestBot(svc)

	b.HandleUpdate(context.Background(), textUpdate(5, "/start@MediaBot dG9r"))

	if gotTok != "dG9r" {
		t.Errorf("token = %q", gotTok)
	}
	if !reflect.DeepEqual(svc.registered, []int64{5}) {
		t.Errorf("registered = %v", svc.registered)
	}
	if !reflect.DeepEqual(msgr.documents, []string{"F1:Clip.mp4"}) {
		t.Errorf("documents = %v", msgr.documents)
	}
}

func TestAdminCommands(t *testing.T) {
	expiry := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	var granted []int64
	svc := &mockService{
		GrantTierFunc: func(_ context.Context, userID int64, days int) (tier.Status, error) {
			granted = append(granted, userID)
			return tier.Status{IsActive: true, Expiry: expiry, DaysLeft: days}, nil
		},
		StatsFunc: func(context.Context) (search.Stats, error) {
			return search.Stats{TotalUsers: 10, ActiveUsers: 3, GeneratedAt: expiry}, nil
		},
	}
	b, msgr, _ := newTestBot(svc)
	ctx := context.Background()

	b.HandleUpdate(ctx, textUpdate(5, "/grant 5 30"))
	b.HandleUpdate(ctx, textUpdate(adminID, "/grant 42"))
	b.HandleUpdate(ctx, textUpdate(adminID, "/grant 42 30"))
	b.HandleUpdate(ctx, textUpdate(adminID, "/stats"))

	wantTexts := []string{
		msgNotAuthorized,
		usageGrant,
		"Premium granted to 42 until 2024-07-01 00:00 UTC.",
	}
	for i, w := range wantTexts {
		if msgr.sent[i].text != w {
			t.Errorf("reply %d = %q, want %q", i, msgr.sent[i].text, w)
		}
	}
	if !reflect.DeepEqual(granted, []int64{42}) {
		t.Errorf("granted = %v", granted)
	}
	if got := msgr.sent[3].text; got[:len("Bot Statistics")] != "Bot Statistics" {
		t.Errorf("stats = %q", got)
	}
}

func TestPremiumCommand(t *testing.T) {
	svc := &mockService{TierStatusFunc: func(_ context.Context, userID int64) (tier.Status, error) {
		if userID == 1 {
			return tier.Status{IsActive: true, Expiry: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), DaysLeft: 3}, nil
		}
		return tier.Status{}, nil
	}}
	b, msgr, _ := newTestBot(svc)

	b.HandleUpdate(context.Background(), textUpdate(1, "/premium"))
	b.HandleUpdate(context.Background(), textUpdate(2, "/premium"))

	if msgr.sent[0].text != "Premium: active\nExpires: 2024-07-01 00:00 UTC\nDays left: 3" {
		t.Errorf("active = %q", msgr.sent[0].text)
	}
	if msgr.sent[1].text != "You do not have an active premium subscription." {
		t.Errorf("inactive = %q", msgr.sent[1].text)
	}
}

func TestBroadcastCommand(t *testing.T) {
	b, msgr, bc := newTestBot(&mockService{})

	b.HandleUpdate(context.Background(), textUpdate(adminID, "/broadcast"))
	b.HandleUpdate(context.Background(), textUpdate(adminID, "/broadcast New movies  added!"))
	b.Wait()

	if msgr.sent[0].text != usageBroadcast || msgr.sent[1].text != msgBroadcastStart {
		t.Errorf("sent = %+v", msgr.sent)
	}
	if !reflect.DeepEqual(bc.texts, []string{"New movies  added!"}) {
		t.Errorf("broadcast texts = %q", bc.texts)
	}
	// One progress edit, then the summary.
	if len(msgr.edits) != 2 || msgr.edits[1].text != (notify.Report{Sent: 6, Failed: 1, Skipped: 1}).Summary() {
		t.Errorf("edits = %+v", msgr.edits)
	}
}

func TestParseCommand(t *testing.T) {
	name, args, rest := parseCommand("/Start@MediaBot  abc def")
	if name != "start" || !reflect.DeepEqual(args, []string{"abc", "def"}) || rest != "abc def" {
		t.Errorf("parseCommand = %q %q %q", name, args, rest)
	}
}
