package chat

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"libripal/helpers"
)

const (
	WelcomeMessage = "Hi! I'm LibriPal, your AI library assistant. How can I help you today?"
	ErrorReply     = "Sorry, I encountered an error. Please try again."
)

// QuickActions prefill the input box; they are never sent on their own.
var QuickActions = []string{
	"Search for books on machine learning",
	"Show my borrowed books",
	"Check my due dates",
	"Recommend similar books",
	"What are the library hours?",
	"Show my fines",
}

// RetrySuggestions accompany the synthetic error reply.
var RetrySuggestions = []string{
	"Try again",
	"Show my borrowed books",
	"What are the library hours?",
}

var (
	ErrInvalidTransition = errors.New("invalid exchange transition")
	ErrBusy              = errors.New("still waiting for the previous reply")
	ErrInvalidMessage    = fmt.Errorf("message must be 1-%d characters", helpers.MaxChatMessageLength)
)

// State of a single exchange. Composing → Sent → Awaiting → Resolved or
// Failed; the last two are terminal.
type State int

const (
	Composing State = iota
	Sent
	Awaiting
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Composing:
		return "composing"
	case Sent:
		return "sent"
	case Awaiting:
		return "awaiting"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one bubble in the transcript. Reply is set on bot messages
// that came from the backend.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Reply     *Response
	Timestamp time.Time
}

// Suggestions returns the chips shown under a bot message.
func (m Message) Suggestions() []string {
	if m.Reply == nil {
		return nil
	}
	return m.Reply.Suggestions
}

// Exchange tracks one user message and its reply.
type Exchange struct {
	ID    string
	Input string

	state State
	reply *Response
	err   error
}

func (e *Exchange) State() State     { return e.state }
func (e *Exchange) Reply() *Response { return e.reply }
func (e *Exchange) Err() error       { return e.err }

func (e *Exchange) transition(from, to State) error {
	if e.state != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.state, to)
	}
	e.state = to
	return nil
}

// Conversation is the in-memory transcript of one chat view. It is not
// persisted.
type Conversation struct {
	mu       sync.Mutex
	messages []Message
	pending  *Exchange
	now      func() time.Time
}

// NewConversation starts a transcript with the welcome message.
func NewConversation(now func() time.Time) *Conversation {
	if now == nil {
		now = time.Now
	}
	c := &Conversation{now: now}
	c.messages = append(c.messages, Message{
		ID:        helpers.GenerateID("msg"),
		Role:      RoleBot,
		Content:   WelcomeMessage,
		Timestamp: now(),
	})
	return c
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Busy reports whether an exchange is awaiting its reply.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Send validates input, appends it optimistically and returns the exchange
// in the Awaiting state. Only one exchange may be outstanding.
func (c *Conversation) Send(input string) (*Exchange, error) {
	if !helpers.IsValidChatMessage(input) {
		return nil, ErrInvalidMessage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return nil, ErrBusy
	}

	ex := &Exchange{ID: helpers.GenerateID("msg"), Input: strings.TrimSpace(input), state: Composing}
	if err := ex.transition(Composing, Sent); err != nil {
		return nil, err
	}
	c.messages = append(c.messages, Message{
		ID:        ex.ID,
		Role:      RoleUser,
		Content:   ex.Input,
		Timestamp: c.now(),
	})
	if err := ex.transition(Sent, Awaiting); err != nil {
		return nil, err
	}
	c.pending = ex
	return ex, nil
}

// Resolve finishes ex with the backend reply and appends it.
func (c *Conversation) Resolve(ex *Exchange, resp *Response) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.finish(ex, Resolved); err != nil {
		return Message{}, err
	}
	ex.reply = resp
	msg := Message{
		ID:        helpers.GenerateID("msg"),
		Role:      RoleBot,
		Content:   resp.Message,
		Reply:     resp,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, msg)
	return msg, nil
}

// Fail finishes ex with err and appends the synthetic error reply.
func (c *Conversation) Fail(ex *Exchange, err error) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ferr := c.finish(ex, Failed); ferr != nil {
		return Message{}, ferr
	}
	ex.err = err
	reply := &Response{
		Message:     ErrorReply,
		Suggestions: RetrySuggestions,
		Payload:     Text{},
	}
	msg := Message{
		ID:        helpers.GenerateID("msg"),
		Role:      RoleBot,
		Content:   ErrorReply,
		Reply:     reply,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, msg)
	return msg, nil
}

func (c *Conversation) finish(ex *Exchange, to State) error {
	if ex == nil || c.pending != ex {
		return fmt.Errorf("%w: exchange is not pending", ErrInvalidTransition)
	}
	if err := ex.transition(Awaiting, to); err != nil {
		return err
	}
	c.pending = nil
	return nil
}

// Notice appends a bot message that did not come from the assistant, such
// as the confirmation of an action run from the chat.
func (c *Conversation) Notice(text string) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := Message{ID: helpers.GenerateID("msg"), Role: RoleBot, Content: text, Timestamp: c.now()}
	c.messages = append(c.messages, msg)
	return msg
}
