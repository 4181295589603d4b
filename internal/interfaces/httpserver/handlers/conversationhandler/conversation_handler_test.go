package conversationhandler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"glowchat/internal/domain/conversation"
	"glowchat/internal/domain/query"
	conversationrequests "glowchat/internal/interfaces/httpserver/requests/conversation"
	"glowchat/internal/utils/platformerrors"
)

type fakeRepo struct {
	nextConvID uint
	nextMsgID  uint
	convs      map[uint]*conversation.Conversation
	messages   map[uint][]*conversation.Message
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		convs:    make(map[uint]*conversation.Conversation),
		messages: make(map[uint][]*conversation.Message),
	}
}

func (r *fakeRepo) Create(_ context.Context, conv *conversation.Conversation) error {
	r.nextConvID++
	conv.ID = r.nextConvID
	r.convs[conv.ID] = conv
	return nil
}

func (r *fakeRepo) FindByFilter(_ context.Context, filter conversation.ConversationFilter, pagination *query.Pagination) ([]*conversation.Conversation, error) {
	var out []*conversation.Conversation
	for _, conv := range r.convs {
		if filter.UserID != nil && conv.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && conv.Status != *filter.Status {
			continue
		}
		out = append(out, conv)
	}
	if pagination != nil && pagination.Limit != nil && len(out) > *pagination.Limit {
		out = out[:*pagination.Limit]
	}
	return out, nil
}

func (r *fakeRepo) Count(ctx context.Context, filter conversation.ConversationFilter) (int64, error) {
	convs, err := r.FindByFilter(ctx, filter, nil)
	return int64(len(convs)), err
}

func (r *fakeRepo) FindByID(_ context.Context, id uint) (*conversation.Conversation, error) {
	if conv, ok := r.convs[id]; ok {
		return conv, nil
	}
	return nil, errors.New("not found")
}

func (r *fakeRepo) FindByPublicID(_ context.Context, publicID string) (*conversation.Conversation, error) {
	for _, conv := range r.convs {
		if conv.PublicID == publicID {
			return conv, nil
		}
	}
	return nil, platformerrors.NewError(context.Background(), platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d")
}

func (r *fakeRepo) Update(_ context.Context, conv *conversation.Conversation) error {
	r.convs[conv.ID] = conv
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uint) error {
	if conv, ok := r.convs[id]; ok {
		conv.Status = conversation.ConversationStatusDeleted
	}
	return nil
}

func (r *fakeRepo) AddMessage(_ context.Context, conversationID uint, message *conversation.Message) error {
	r.nextMsgID++
	message.ID = r.nextMsgID
	message.ConversationID = conversationID
	r.messages[conversationID] = append(r.messages[conversationID], message)
	return nil
}

func (r *fakeRepo) ListMessages(_ context.Context, conversationID uint, _ *query.Pagination) ([]*conversation.Message, error) {
	return r.messages[conversationID], nil
}

func (r *fakeRepo) GetMessageByPublicID(_ context.Context, conversationID uint, publicID string) (*conversation.Message, error) {
	for _, m := range r.messages[conversationID] {
		if m.PublicID == publicID {
			return m, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeRepo) DeleteMessage(_ context.Context, conversationID uint, messageID uint) error {
	kept := r.messages[conversationID][:0]
	for _, m := range r.messages[conversationID] {
		if m.ID != messageID {
			kept = append(kept, m)
		}
	}
	r.messages[conversationID] = kept
	return nil
}

func (r *fakeRepo) CountMessages(_ context.Context, conversationID uint) (int64, error) {
	return int64(len(r.messages[conversationID])), nil
}

func (r *fakeRepo) PurgeDeletedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newHandler() (*ConversationHandler, *fakeRepo) {
	repo := newFakeRepo()
	return NewConversationHandler(conversation.NewConversationService(repo)), repo
}

func conversationrequest(title string) conversationrequests.CreateConversationRequest {
	return conversationrequests.CreateConversationRequest{Title: &title}
}

func createMessageRequest(role, content string) conversationrequests.CreateMessageRequest {
	return conversationrequests.CreateMessageRequest{Role: role, Content: content}
}

func TestCreateConversation(t *testing.T) {
	handler, _ := newHandler()

	resp, err := handler.CreateConversation(context.Background(), 1, conversationrequest("My chat"))
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if !strings.HasPrefix(resp.ID, "conv_") {
		t.Errorf("conversation id = %q, want conv_ prefix", resp.ID)
	}
	if resp.Title == nil || *resp.Title != "My chat" {
		t.Errorf("title = %v, want My chat", resp.Title)
	}
	if resp.Object != "conversation" {
		t.Errorf("object = %q, want conversation", resp.Object)
	}
}

func TestCreateConversation_RejectsOversizedTitle(t *testing.T) {
	handler, _ := newHandler()

	_, err := handler.CreateConversation(context.Background(), 1, conversationrequest(strings.Repeat("x", 300)))
	if err == nil {
		t.Fatal("CreateConversation() error = nil, want validation failure")
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("error type = %v, want validation", err)
	}
}

func TestDeleteConversation_HiddenFromList(t *testing.T) {
	handler, _ := newHandler()
	ctx := context.Background()

	created, err := handler.CreateConversation(ctx, 1, conversationrequest("doomed"))
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	deleted, err := handler.DeleteConversation(ctx, 1, created.ID)
	if err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if !deleted.Deleted || deleted.ID != created.ID {
		t.Errorf("deleted response = %+v, want deleted=true for %s", deleted, created.ID)
	}

	list, err := handler.ListConversations(ctx, 1, nil)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(list.Data) != 0 {
		t.Errorf("listed conversations = %d, want 0 after delete", len(list.Data))
	}

	if _, err := handler.GetConversation(ctx, 1, created.ID); err == nil {
		t.Error("GetConversation() after delete = nil error, want not found")
	}
}

func TestListConversations_ScopedToOwner(t *testing.T) {
	handler, _ := newHandler()
	ctx := context.Background()

	if _, err := handler.CreateConversation(ctx, 1, conversationrequest("mine")); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if _, err := handler.CreateConversation(ctx, 2, conversationrequest("theirs")); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	list, err := handler.ListConversations(ctx, 1, nil)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(list.Data) != 1 {
		t.Fatalf("listed conversations = %d, want only the owner's", len(list.Data))
	}
	if list.Data[0].Title == nil || *list.Data[0].Title != "mine" {
		t.Errorf("listed conversation = %+v, want the owner's", list.Data[0])
	}
}

func TestCreateMessage_AppendsAndLists(t *testing.T) {
	handler, _ := newHandler()
	ctx := context.Background()

	conv, err := handler.CreateConversation(ctx, 1, conversationrequest("chat"))
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	msg, err := handler.CreateMessage(ctx, 1, conv.ID, createMessageRequest("user", "hello"))
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("message id = %q, want msg_ prefix", msg.ID)
	}
	if msg.Status != string(conversation.MessageStatusCompleted) {
		t.Errorf("message status = %q, want completed", msg.Status)
	}

	list, err := handler.ListMessages(ctx, 1, conv.ID, nil)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].Content != "hello" {
		t.Errorf("listed messages = %+v, want the appended message", list.Data)
	}
}

func TestCreateMessage_RejectsUnknownRole(t *testing.T) {
	handler, _ := newHandler()
	ctx := context.Background()

	conv, err := handler.CreateConversation(ctx, 1, conversationrequest("chat"))
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	_, err = handler.CreateMessage(ctx, 1, conv.ID, createMessageRequest("robot", "beep"))
	if err == nil {
		t.Fatal("CreateMessage() error = nil, want validation failure")
	}
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Errorf("error type = %v, want validation", err)
	}
}

func TestDeleteMessage(t *testing.T) {
	handler, _ := newHandler()
	ctx := context.Background()

	conv, err := handler.CreateConversation(ctx, 1, conversationrequest("chat"))
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	msg, err := handler.CreateMessage(ctx, 1, conv.ID, createMessageRequest("user", "hello"))
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}

	deleted, err := handler.DeleteMessage(ctx, 1, conv.ID, msg.ID)
	if err != nil {
		t.Fatalf("DeleteMessage() error = %v", err)
	}
	if !deleted.Deleted {
		t.Error("deleted.Deleted = false, want true")
	}

	list, err := handler.ListMessages(ctx, 1, conv.ID, nil)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(list.Data) != 0 {
		t.Errorf("listed messages = %d, want 0 after delete", len(list.Data))
	}
}
