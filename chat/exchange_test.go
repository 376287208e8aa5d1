package chat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"libripal/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

func TestConversationStartsWithWelcome(t *testing.T) {
	c := NewConversation(fixedNow)
	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleBot, msgs[0].Role)
	assert.Equal(t, WelcomeMessage, msgs[0].Content)
	assert.False(t, c.Busy())
}

func TestExchangeResolved(t *testing.T) {
	c := NewConversation(fixedNow)
	ex, err := c.Send("  Show my borrowed books ")
	require.NoError(t, err)
	assert.Equal(t, Awaiting, ex.State())
	assert.True(t, c.Busy())

	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "Show my borrowed books", msgs[1].Content)

	_, err = c.Send("another")
	assert.ErrorIs(t, err, ErrBusy)

	reply := &Response{Message: "You have 2 books", Type: KindBorrowedBooks, Payload: IssuedList{}, Suggestions: []string{"Renew my books"}}
	msg, err := c.Resolve(ex, reply)
	require.NoError(t, err)
	assert.Equal(t, Resolved, ex.State())
	assert.Equal(t, "You have 2 books", msg.Content)
	assert.Equal(t, []string{"Renew my books"}, msg.Suggestions())
	assert.False(t, c.Busy())
	assert.Len(t, c.Messages(), 3)

	_, err = c.Resolve(ex, reply)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = c.Fail(ex, errors.New("late"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExchangeFailed(t *testing.T) {
	c := NewConversation(fixedNow)
	ex, err := c.Send("What are the library hours?")
	require.NoError(t, err)

	msg, err := c.Fail(ex, errors.New("boom"))
	require.NoError(t, err)
	assert.Equal(t, Failed, ex.State())
	assert.EqualError(t, ex.Err(), "boom")
	assert.Equal(t, ErrorReply, msg.Content)
	assert.Equal(t, RetrySuggestions, msg.Suggestions())
	assert.False(t, c.Busy())
}

func TestSendRejectsInvalidMessages(t *testing.T) {
	c := NewConversation(fixedNow)
	_, err := c.Send("   ")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = c.Send(strings.Repeat("a", 1001))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Len(t, c.Messages(), 1)
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "composing", Composing.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestNotice(t *testing.T) {
	c := NewConversation(fixedNow)
	c.Notice("Book reserved successfully")
	msgs := c.Messages()
	assert.Equal(t, "Book reserved successfully", msgs[len(msgs)-1].Content)
	assert.Nil(t, msgs[len(msgs)-1].Suggestions())
}

func newChatServer(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"type":"help","message":"I can help"}`))
		}
	}
	r := chi.NewRouter()
	r.Post("/api/chat/", handler)
	r.Get("/api/chat/suggestions", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`["Check my due dates","Renew my books"]`))
	})
	r.Post("/api/chat/feedback", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":true,"message":"Thank you for your feedback!"}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL)
}

func TestServiceExchange(t *testing.T) {
	client := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"fines","message":"Your total outstanding fines: $0.00","data":[],"suggestions":["Set up reminders"]}`))
	})
	svc := NewService(client, time.Second)
	conv := NewConversation(fixedNow)

	ex, err := conv.Send("Show my fines")
	require.NoError(t, err)
	msg, err := svc.Exchange(context.Background(), conv, ex)
	require.NoError(t, err)
	assert.Equal(t, Resolved, ex.State())
	require.NotNil(t, msg.Reply)
	assert.Equal(t, KindFines, msg.Reply.Type)
	assert.True(t, msg.Reply.Payload.(FineList).Empty())
}

func TestServiceExchangeFailure(t *testing.T) {
	client := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc := NewService(client, time.Second)
	conv := NewConversation(fixedNow)

	ex, _ := conv.Send("hello")
	msg, err := svc.Exchange(context.Background(), conv, ex)
	require.NoError(t, err)
	assert.Equal(t, Failed, ex.State())
	assert.Equal(t, "HTTP error! status: 500", ex.Err().Error())
	assert.Equal(t, ErrorReply, msg.Content)
}

func TestServiceTimeout(t *testing.T) {
	client := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	svc := NewService(client, 50*time.Millisecond)
	conv := NewConversation(fixedNow)

	ex, _ := conv.Send("slow")
	_, err := svc.Exchange(context.Background(), conv, ex)
	require.NoError(t, err)
	assert.Equal(t, Failed, ex.State())
	assert.ErrorIs(t, ex.Err(), context.DeadlineExceeded)
}

func TestSuggestionsAndFeedback(t *testing.T) {
	svc := NewService(newChatServer(t, nil), 0)
	s, err := svc.Suggestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Check my due dates", "Renew my books"}, s)

	res, err := svc.SendFeedback(context.Background(), Feedback{Message: "hi", ResponseType: KindHelp, Rating: 5})
	require.NoError(t, err)
	assert.True(t, res.Success)
}
