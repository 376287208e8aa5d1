package chat

import (
	"context"
	"time"

	"libripal/api"
	"libripal/library"
)

// Service wraps the chat endpoints of the API.
type Service struct {
	client  *api.Client
	timeout time.Duration
}

// NewService binds the chat endpoints to client. A positive timeout bounds
// each assistant round trip so a stalled backend ends in a failed exchange
// instead of an endless spinner.
func NewService(client *api.Client, timeout time.Duration) *Service {
	return &Service{client: client, timeout: timeout}
}

type sendRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Send posts message to the assistant.
func (s *Service) Send(ctx context.Context, message string, extra map[string]any) (*Response, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	var resp Response
	if err := s.client.Post(ctx, "/api/chat/", sendRequest{Message: message, Context: extra}, &resp); err != nil {
		return nil, err
	}
	if resp.Payload == nil {
		resp.Payload = Text{}
	}
	return &resp, nil
}

// Exchange sends the pending exchange and records the outcome in conv. The
// returned message is the one appended to the transcript.
func (s *Service) Exchange(ctx context.Context, conv *Conversation, ex *Exchange) (Message, error) {
	resp, err := s.Send(ctx, ex.Input, nil)
	if err != nil {
		return conv.Fail(ex, err)
	}
	return conv.Resolve(ex, resp)
}

// Suggestions returns personalised prompts for the input box.
func (s *Service) Suggestions(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.client.Get(ctx, "/api/chat/suggestions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Feedback rates a reply.
type Feedback struct {
	Message      string `json:"message"`
	ResponseType Kind   `json:"response_type"`
	Rating       int    `json:"rating"`
	FeedbackText string `json:"feedback_text,omitempty"`
}

func (s *Service) SendFeedback(ctx context.Context, fb Feedback) (*library.ActionResult, error) {
	var res library.ActionResult
	if err := s.client.Post(ctx, "/api/chat/feedback", fb, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
