// Package telegram is the Telegram front end. Each chat signs in with its
// own account; commands map onto the library API and any other text goes to
// the assistant.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"libripal/api"
	"libripal/chat"
	"libripal/helpers"
	"libripal/library"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

const (
	limiterBurst = 3
	searchLimit  = 5
	hoursPrompt  = "What are the library hours and borrowing rules?"

	slowDown     = "⏳ Slow down a little, I'm still working on your last message."
	needLogin    = "🔒 Please sign in first: <code>/login &lt;username&gt; &lt;password&gt;</code>"
	sessionEnded = "🔒 Your session has expired. Please /login again."
)

// Commands lists the slash commands the bot answers, in help order.
var Commands = []string{"start", "help", "login", "logout", "search", "mybooks", "borrow", "renew", "reserve", "fines", "hours"}

const helpText = `<b>LibriPal commands</b>
/login &lt;username&gt; &lt;password&gt; sign in
/logout sign out
/search &lt;query&gt; find books
/mybooks your borrowed books
/borrow &lt;book id&gt; borrow a book
/renew &lt;borrowed id&gt; renew a loan
/reserve &lt;book id&gt; join the waiting list
/fines outstanding fines
/hours opening hours and rules

Anything else is sent to the library assistant.`

type Options struct {
	// Rate is the number of messages per second accepted from one chat.
	Rate        float64
	ChatTimeout time.Duration
	Currency    string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Bot answers Telegram chats. It holds no per-chat state besides the rate
// limiters; sessions live in the store.
type Bot struct {
	client   *api.Client
	store    *library.Store
	opts     Options
	renderer HTMLRenderer

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	// reportLimited logs a rate-limited chat at most once a minute.
	reportLimited func(int64) bool
}

// New builds a Bot on an unauthenticated client. Per-chat sessions are bound
// to copies of it.
func New(client *api.Client, store *library.Store, opts Options) *Bot {
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	return &Bot{
		client:   client,
		store:    store,
		opts:     opts,
		renderer: HTMLRenderer{Now: opts.Now, Currency: opts.Currency},
		limiters: map[int64]*rate.Limiter{},
		reportLimited: helpers.Throttle(time.Minute, func(chatID int64) {
			logger.Warn("telegram chat rate limited", "chat", chatID)
		}),
	}
}

// Run connects with token and long-polls until ctx ends.
func (b *Bot) Run(ctx context.Context, token string) error {
	tb, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			b.opts.Logger.Error("telegram handler failed", "err", err)
		},
	})
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	b.Register(ctx, tb)

	go func() {
		<-ctx.Done()
		tb.Stop()
	}()
	b.opts.Logger.Info("telegram bot polling", "user", tb.Me.Username)
	tb.Start()
	return nil
}

// renewButton is the inline button attached to renewable loans in /mybooks.
var renewButton = &tele.Btn{Unique: "renew"}

// Register installs the command, text and button handlers on tb.
func (b *Bot) Register(ctx context.Context, tb *tele.Bot) {
	for _, cmd := range Commands {
		tb.Handle("/"+cmd, b.handler(ctx, cmd))
	}
	tb.Handle(tele.OnText, b.handler(ctx, ""))
	tb.Handle(renewButton, func(c tele.Context) error {
		_ = c.Respond()
		chatID := c.Chat().ID
		if !b.Allow(chatID) {
			return c.Send(slowDown)
		}
		text, _ := b.answer(ctx, chatID, "renew", c.Data())
		return c.Send(text, tele.ModeHTML)
	})
}

func (b *Bot) handler(ctx context.Context, cmd string) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID := c.Chat().ID
		if cmd == "login" {
			// the message carries a password
			if err := c.Delete(); err != nil {
				b.opts.Logger.Warn("delete login message", "chat", chatID, "err", err)
			}
		}
		if !b.Allow(chatID) {
			return c.Send(slowDown)
		}
		args := c.Text()
		if cmd != "" {
			args = c.Message().Payload
		} else {
			_ = c.Notify(tele.Typing)
		}
		text, markup := b.answer(ctx, chatID, cmd, args)
		if markup != nil {
			return c.Send(text, tele.ModeHTML, markup)
		}
		return c.Send(text, tele.ModeHTML)
	}
}

// Allow reports whether chatID may send another message now.
func (b *Bot) Allow(chatID int64) bool {
	b.mu.Lock()
	l, ok := b.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(b.opts.Rate), limiterBurst)
		b.limiters[chatID] = l
	}
	b.mu.Unlock()
	if l.AllowN(b.opts.Now(), 1) {
		return true
	}
	b.reportLimited(chatID)
	return false
}

func sessionName(chatID int64) string { return "tg:" + strconv.FormatInt(chatID, 10) }

// manager returns the manager bound to the chat's stored session, or nil
// when the chat is not signed in.
func (b *Bot) manager(chatID int64) (*library.LibraryManager, error) {
	sess, err := b.store.LoadSession(sessionName(chatID), b.opts.Now())
	if errors.Is(err, library.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return library.NewLibraryManager(b.client, sess), nil
}

// Reply computes the HTML answer to cmd (without the slash; "" for free
// text) sent by chatID.
func (b *Bot) Reply(ctx context.Context, chatID int64, cmd, args string) string {
	text, _ := b.answer(ctx, chatID, cmd, args)
	return text
}

// answer is Reply plus the inline keyboard to attach, if any.
func (b *Bot) answer(ctx context.Context, chatID int64, cmd, args string) (string, *tele.ReplyMarkup) {
	args = strings.TrimSpace(args)
	switch cmd {
	case "start":
		return "👋 <b>Welcome to LibriPal!</b>\nYour AI-powered library assistant.\n\n" + helpText, nil
	case "help":
		return helpText, nil
	case "login":
		return b.login(ctx, chatID, args), nil
	case "logout":
		if err := b.store.DeleteSession(sessionName(chatID)); err != nil {
			return b.failure(chatID, err), nil
		}
		return "👋 Signed out.", nil
	}

	lm, err := b.manager(chatID)
	if err != nil {
		return b.failure(chatID, err), nil
	}
	if lm == nil {
		return needLogin, nil
	}

	var (
		reply  string
		markup *tele.ReplyMarkup
	)
	switch cmd {
	case "search":
		reply, err = b.search(ctx, lm, args)
	case "mybooks":
		reply, markup, err = b.myBooks(ctx, lm)
	case "borrow":
		reply, err = b.action(ctx, args, "book id", lm.BorrowBook)
	case "renew":
		reply, err = b.action(ctx, args, "borrowed id", lm.RenewBook)
	case "reserve":
		reply, err = b.action(ctx, args, "book id", lm.ReserveBook)
	case "fines":
		reply, err = b.fines(ctx, lm)
	case "hours":
		reply, err = b.ask(ctx, lm, hoursPrompt)
	default:
		reply, err = b.ask(ctx, lm, args)
	}
	if api.IsUnauthorized(err) {
		if derr := b.store.DeleteSession(sessionName(chatID)); derr != nil {
			b.opts.Logger.Warn("drop expired session", "chat", chatID, "err", derr)
		}
		return sessionEnded, nil
	}
	if err != nil {
		return b.failure(chatID, err), nil
	}
	return reply, markup
}

func (b *Bot) failure(chatID int64, err error) string {
	if !errors.Is(err, library.ErrValidation) {
		b.opts.Logger.Warn("telegram request failed", "chat", chatID, "err", err)
	}
	return "❌ " + esc(helpers.ErrorMessage(err))
}

func (b *Bot) login(ctx context.Context, chatID int64, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Usage: <code>/login &lt;username&gt; &lt;password&gt;</code>"
	}
	sess, err := library.NewLibraryManager(b.client, nil).Login(ctx, fields[0], fields[1])
	if err != nil {
		return b.failure(chatID, err)
	}
	if err := b.store.SaveSession(sessionName(chatID), sess); err != nil {
		return b.failure(chatID, err)
	}
	b.opts.Logger.Info("telegram chat signed in", "chat", chatID, "user", sess.Username)
	return "✅ Signed in as <b>" + esc(sess.Username) + "</b>"
}

func (b *Bot) search(ctx context.Context, lm *library.LibraryManager, query string) (string, error) {
	if query == "" {
		return "Usage: <code>/search &lt;query&gt;</code>", nil
	}
	res, err := lm.SearchBooks(ctx, library.SearchRequest{Query: query, Limit: searchLimit})
	if err != nil {
		return "", err
	}
	if len(res.Books) == 0 {
		return "No books found for <b>" + esc(query) + "</b>. Try different search terms.", nil
	}
	msg := fmt.Sprintf("📚 %s found for %q", helpers.Plural(len(res.Books), "book"), query)
	return b.renderer.Books(chat.Response{Message: msg}, chat.BookList{Books: res.Books}), nil
}

// myBooks lists the loans with a renew button for each one that can still
// be renewed.
func (b *Bot) myBooks(ctx context.Context, lm *library.LibraryManager) (string, *tele.ReplyMarkup, error) {
	books, err := lm.BorrowedBooks(ctx)
	if err != nil {
		return "", nil, err
	}
	if len(books) == 0 {
		return "📖 You have no borrowed books.", nil, nil
	}
	msg := fmt.Sprintf("📖 You have %s borrowed:", helpers.Plural(len(books), "book"))
	text := b.renderer.Issued(chat.Response{Message: msg}, chat.IssuedList{Books: books})

	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	now := b.opts.Now()
	for _, book := range books {
		if library.CanRenew(book, now) {
			rows = append(rows, markup.Row(markup.Data("🔄 Renew "+helpers.TruncateText(book.Title, 24), renewButton.Unique, strconv.FormatInt(book.ID, 10))))
		}
	}
	if len(rows) == 0 {
		return text, nil, nil
	}
	markup.Inline(rows...)
	return text, markup, nil
}

func (b *Bot) fines(ctx context.Context, lm *library.LibraryManager) (string, error) {
	f, err := lm.Fines(ctx)
	if err != nil {
		return "", err
	}
	msg := "💰 Your total outstanding fines: " + helpers.FormatCurrency(f.TotalAmount, b.opts.Currency)
	return b.renderer.Fines(chat.Response{Message: msg}, chat.FineList{Fines: f.Fines}), nil
}

func (b *Bot) action(ctx context.Context, args, what string, f func(context.Context, int64) (*library.ActionResult, error)) (string, error) {
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil || id <= 0 {
		return "Please give a numeric " + what + ".", nil
	}
	res, err := f(ctx, id)
	if err != nil {
		return "", err
	}
	return "✅ " + esc(res.Message), nil
}

// ask relays text to the assistant and renders its typed reply.
func (b *Bot) ask(ctx context.Context, lm *library.LibraryManager, text string) (string, error) {
	if text == "" {
		return helpText, nil
	}
	if len([]rune(text)) > helpers.MaxChatMessageLength {
		return fmt.Sprintf("Messages are limited to %d characters.", helpers.MaxChatMessageLength), nil
	}
	svc := chat.NewService(lm.Client(), b.opts.ChatTimeout)
	resp, err := svc.Send(ctx, text, map[string]any{"source": "telegram"})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || api.IsNetworkError(err) {
			return esc(chat.ErrorReply), nil
		}
		return "", err
	}
	return chat.Dispatch(*resp, b.renderer) + suggestionList(resp.Suggestions), nil
}
