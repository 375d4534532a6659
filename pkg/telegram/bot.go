package telegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"tcgrabber/pkg/logger"
	"tcgrabber/pkg/storage"
)

const pollTimeout = 30 * time.Second

// Bot answers chat commands over long polling: /status shows the
// current settings, /sendfile and /sendphoto switch the delivery mode,
// and /photos YYYY-MM-DD resends every photo saved for that date.
type Bot struct {
	notifier *Notifier
	settings *Settings
	store    *storage.Manager
	logger   logger.Logger

	client *http.Client
	offset int64

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewBot creates a command bot sharing the notifier's token and chat
func NewBot(notifier *Notifier, settings *Settings, store *storage.Manager, log logger.Logger) *Bot {
	return &Bot{
		notifier: notifier,
		settings: settings,
		store:    store,
		logger:   log,
		client:   &http.Client{Timeout: pollTimeout + 10*time.Second},
	}
}

type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	Text string `json:"text"`
	Chat chat   `json:"chat"`
}

type chat struct {
	ID int64 `json:"id"`
}

// Start begins the polling loop in the background
func (b *Bot) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.stop = make(chan struct{})
	stop := b.stop
	b.mu.Unlock()

	b.wg.Add(1)
	go b.poll(stop)
	b.logger.Info("Telegram bot started")
}

// Stop halts polling and waits for the loop to exit. Idempotent.
func (b *Bot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stop)
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bot) poll(stop <-chan struct{}) {
	defer b.wg.Done()

	for {
		select {
		case <-stop:
			return
		default:
		}

		updates, err := b.getUpdates()
		if err != nil {
			b.logger.WithError(err).Warn("Failed to fetch Telegram updates")
			select {
			case <-stop:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
			b.handle(u)
		}
	}
}

func (b *Bot) getUpdates() ([]update, error) {
	q := url.Values{
		"offset":  {strconv.FormatInt(b.offset, 10)},
		"timeout": {strconv.Itoa(int(pollTimeout.Seconds()))},
	}
	resp, err := b.client.Get(b.notifier.methodURL("getUpdates") + "?" + q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		OK     bool     `json:"ok"`
		Result []update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if !parsed.OK {
		return nil, fmt.Errorf("getUpdates rejected")
	}
	return parsed.Result, nil
}

func (b *Bot) handle(u update) {
	if u.Message == nil {
		return
	}
	// commands are only accepted from the configured chat
	if strconv.FormatInt(u.Message.Chat.ID, 10) != b.notifier.chatID {
		return
	}

	fields := strings.Fields(u.Message.Text)
	if len(fields) == 0 {
		return
	}
	command := fields[0]
	// commands in groups arrive as /status@botname
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}

	switch command {
	case "/sendfile":
		b.settings.SetSendAsFile(true)
		b.reply("Photos will now be sent as files (original quality)")
	case "/sendphoto":
		b.settings.SetSendAsFile(false)
		b.reply("Photos will now be sent as compressed images")
	case "/status":
		b.reply(b.statusText())
	case "/photos":
		if len(fields) < 2 {
			b.reply("Usage: /photos YYYY-MM-DD")
			return
		}
		b.sendPhotosForDate(fields[1])
	}
}

func (b *Bot) statusText() string {
	mode := "compressed photos"
	if b.settings.SendAsFile() {
		mode = "files (original quality)"
	}
	return fmt.Sprintf(
		"Current settings:\nPhoto mode: %s\n\nCommands:\n"+
			"/sendfile - Send as files\n"+
			"/sendphoto - Send compressed\n"+
			"/photos YYYY-MM-DD - Resend photos for a date",
		mode,
	)
}

func (b *Bot) sendPhotosForDate(date string) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		b.reply("Usage: /photos YYYY-MM-DD")
		return
	}

	photos, err := b.store.ListByDate(date)
	if err != nil {
		b.logger.WithError(err).Error("Failed to list photos")
		b.reply("Failed to look up photos for " + date)
		return
	}
	if len(photos) == 0 {
		b.reply("No photos found for " + date)
		return
	}

	b.reply(fmt.Sprintf("Found %d photo(s) for %s. Sending...", len(photos), date))

	sent := 0
	for i, path := range photos {
		caption := fmt.Sprintf("%s (%d/%d)", date, i+1, len(photos))
		if err := b.notifier.SendPhoto(path, caption); err != nil {
			b.logger.WithError(err).WithField("path", path).Error("Failed to send photo")
			b.reply("Failed to send " + filepath.Base(path))
			continue
		}
		sent++
	}
	b.reply(fmt.Sprintf("Sent %d photo(s) for %s", sent, date))
}

func (b *Bot) reply(text string) {
	if err := b.notifier.SendMessage(text); err != nil {
		b.logger.WithError(err).Warn("Failed to send bot reply")
	}
}
