package handlers

import (
	"context"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/services"
)

// Flexible stubs for every service interface consumed by Handlers. Each
// method delegates to the matching func field when set and returns a benign
// zero value otherwise, so a test only wires the calls it cares about.

type stubSessionSvc struct {
	create      func(ctx context.Context, userID, title string, description *string) (*domain.Session, error)
	listPage    func(ctx context.Context, userID string, page, pageSize int) ([]domain.Session, int64, error)
	get         func(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	updateTitle func(ctx context.Context, userID, sessionID, title string) error
	complete    func(ctx context.Context, userID, sessionID string) error
	delete      func(ctx context.Context, userID, sessionID string) error
}

func (s stubSessionSvc) Create(ctx context.Context, userID, title string, description *string) (*domain.Session, error) {
	if s.create != nil {
		return s.create(ctx, userID, title, description)
	}
	return &domain.Session{ID: "s1", UserID: userID, Title: title, Status: domain.SessionPlanning}, nil
}

func (s stubSessionSvc) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Session, int64, error) {
	if s.listPage != nil {
		return s.listPage(ctx, userID, page, pageSize)
	}
	return nil, 0, nil
}

func (s stubSessionSvc) Get(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	if s.get != nil {
		return s.get(ctx, userID, sessionID)
	}
	return &domain.Session{ID: sessionID, UserID: userID}, nil
}

func (s stubSessionSvc) UpdateTitle(ctx context.Context, userID, sessionID, title string) error {
	if s.updateTitle != nil {
		return s.updateTitle(ctx, userID, sessionID, title)
	}
	return nil
}

func (s stubSessionSvc) Complete(ctx context.Context, userID, sessionID string) error {
	if s.complete != nil {
		return s.complete(ctx, userID, sessionID)
	}
	return nil
}

func (s stubSessionSvc) Delete(ctx context.Context, userID, sessionID string) error {
	if s.delete != nil {
		return s.delete(ctx, userID, sessionID)
	}
	return nil
}

type stubDocSvc struct {
	upload      func(ctx context.Context, userID, sessionID, fileName string, data []byte) (*domain.Document, error)
	list        func(ctx context.Context, userID, sessionID string) ([]domain.Document, error)
	get         func(ctx context.Context, userID, sessionID, docID string) (*domain.Document, error)
	downloadURL func(ctx context.Context, userID, sessionID, docID string) (string, error)
	reprocess   func(ctx context.Context, userID, sessionID, docID string) (*domain.Document, error)
	delete      func(ctx context.Context, userID, sessionID, docID string) error
}

func (s stubDocSvc) Upload(ctx context.Context, userID, sessionID, fileName string, data []byte) (*domain.Document, error) {
	if s.upload != nil {
		return s.upload(ctx, userID, sessionID, fileName, data)
	}
	return &domain.Document{ID: "d1", SessionID: sessionID, FileName: fileName, ProcessingStatus: domain.ProcessingPending}, nil
}

func (s stubDocSvc) List(ctx context.Context, userID, sessionID string) ([]domain.Document, error) {
	if s.list != nil {
		return s.list(ctx, userID, sessionID)
	}
	return nil, nil
}

func (s stubDocSvc) Get(ctx context.Context, userID, sessionID, docID string) (*domain.Document, error) {
	if s.get != nil {
		return s.get(ctx, userID, sessionID, docID)
	}
	return &domain.Document{ID: docID, SessionID: sessionID}, nil
}

func (s stubDocSvc) DownloadURL(ctx context.Context, userID, sessionID, docID string) (string, error) {
	if s.downloadURL != nil {
		return s.downloadURL(ctx, userID, sessionID, docID)
	}
	return "https://example.com/signed", nil
}

func (s stubDocSvc) Reprocess(ctx context.Context, userID, sessionID, docID string) (*domain.Document, error) {
	if s.reprocess != nil {
		return s.reprocess(ctx, userID, sessionID, docID)
	}
	return &domain.Document{ID: docID, SessionID: sessionID, ProcessingStatus: domain.ProcessingPending}, nil
}

func (s stubDocSvc) Delete(ctx context.Context, userID, sessionID, docID string) error {
	if s.delete != nil {
		return s.delete(ctx, userID, sessionID, docID)
	}
	return nil
}

type stubPlanSvc struct {
	generate   func(ctx context.Context, userID, sessionID, lang string) (*domain.PlanRevision, error)
	revise     func(ctx context.Context, userID, sessionID, instruction, lang string) (*domain.PlanRevision, error)
	undo       func(ctx context.Context, userID, sessionID string) (*domain.PlanRevision, error)
	history    func(ctx context.Context, userID, sessionID string) ([]domain.PlanRevision, error)
	patchTopic func(ctx context.Context, userID, sessionID, topicID string, done bool) (*domain.DraftPlan, error)
}

func (s stubPlanSvc) Generate(ctx context.Context, userID, sessionID, lang string) (*domain.PlanRevision, error) {
	if s.generate != nil {
		return s.generate(ctx, userID, sessionID, lang)
	}
	return &domain.PlanRevision{ID: "r1", SessionID: sessionID, Version: 1, ContentJSON: []byte(`{"topics":[]}`)}, nil
}

func (s stubPlanSvc) Revise(ctx context.Context, userID, sessionID, instruction, lang string) (*domain.PlanRevision, error) {
	if s.revise != nil {
		return s.revise(ctx, userID, sessionID, instruction, lang)
	}
	return &domain.PlanRevision{ID: "r2", SessionID: sessionID, Version: 2, ContentJSON: []byte(`{"topics":[]}`)}, nil
}

func (s stubPlanSvc) Undo(ctx context.Context, userID, sessionID string) (*domain.PlanRevision, error) {
	if s.undo != nil {
		return s.undo(ctx, userID, sessionID)
	}
	return &domain.PlanRevision{ID: "r1", SessionID: sessionID, Version: 1, ContentJSON: []byte(`{"topics":[]}`)}, nil
}

func (s stubPlanSvc) History(ctx context.Context, userID, sessionID string) ([]domain.PlanRevision, error) {
	if s.history != nil {
		return s.history(ctx, userID, sessionID)
	}
	return nil, nil
}

func (s stubPlanSvc) SetDraftTopicCompletion(ctx context.Context, userID, sessionID, topicID string, done bool) (*domain.DraftPlan, error) {
	if s.patchTopic != nil {
		return s.patchTopic(ctx, userID, sessionID, topicID, done)
	}
	return &domain.DraftPlan{}, nil
}

type stubStudySvc struct {
	start      func(ctx context.Context, userID, sessionID, lang string) (*services.StartResult, error)
	listTopics func(ctx context.Context, userID, sessionID string) ([]domain.Topic, error)
	patchTopic func(ctx context.Context, userID, sessionID, topicID string, done bool) error
}

func (s stubStudySvc) StartStudying(ctx context.Context, userID, sessionID, lang string) (*services.StartResult, error) {
	if s.start != nil {
		return s.start(ctx, userID, sessionID, lang)
	}
	return &services.StartResult{Session: &domain.Session{ID: sessionID, Status: domain.SessionActive}}, nil
}

func (s stubStudySvc) ListTopics(ctx context.Context, userID, sessionID string) ([]domain.Topic, error) {
	if s.listTopics != nil {
		return s.listTopics(ctx, userID, sessionID)
	}
	return nil, nil
}

func (s stubStudySvc) SetTopicCompletion(ctx context.Context, userID, sessionID, topicID string, done bool) error {
	if s.patchTopic != nil {
		return s.patchTopic(ctx, userID, sessionID, topicID, done)
	}
	return nil
}

type stubChatSvc struct {
	list     func(ctx context.Context, userID, sessionID string) ([]domain.Chat, error)
	get      func(ctx context.Context, userID, sessionID, chatID string) (*domain.Chat, error)
	messages func(ctx context.Context, userID, sessionID, chatID string, page, pageSize int) ([]domain.Message, int64, error)
	send     func(ctx context.Context, userID, sessionID, chatID, content, lang string) (*services.SendResult, error)
}

func (s stubChatSvc) ListChats(ctx context.Context, userID, sessionID string) ([]domain.Chat, error) {
	if s.list != nil {
		return s.list(ctx, userID, sessionID)
	}
	return nil, nil
}

func (s stubChatSvc) GetChat(ctx context.Context, userID, sessionID, chatID string) (*domain.Chat, error) {
	if s.get != nil {
		return s.get(ctx, userID, sessionID, chatID)
	}
	return &domain.Chat{ID: chatID, SessionID: sessionID}, nil
}

func (s stubChatSvc) ListMessages(ctx context.Context, userID, sessionID, chatID string, page, pageSize int) ([]domain.Message, int64, error) {
	if s.messages != nil {
		return s.messages(ctx, userID, sessionID, chatID, page, pageSize)
	}
	return nil, 0, nil
}

func (s stubChatSvc) Send(ctx context.Context, userID, sessionID, chatID, content, lang string) (*services.SendResult, error) {
	if s.send != nil {
		return s.send(ctx, userID, sessionID, chatID, content, lang)
	}
	return &services.SendResult{}, nil
}

// newStubHandlers wires default stubs, letting tests replace only the
// service under test.
func newStubHandlers() *Handlers {
	return New(stubSessionSvc{}, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
}
