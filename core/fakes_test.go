package core

import (
	"context"
	"sync"

	"aide/core/llm"
	"aide/modules"
)

type sentText struct {
	ChatID  string
	ReplyTo string
	Text    string
}

type sentImage struct {
	ChatID  string
	Caption string
	Image   Image
}

type fakeResponder struct {
	mu       sync.Mutex
	texts    []sentText
	images   []sentImage
	typing   int
	imageErr error
}

func (f *fakeResponder) ReplyText(_ context.Context, chatID, replyTo, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, sentText{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return nil
}

func (f *fakeResponder) ReplyImage(_ context.Context, chatID, _ string, caption string, img Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageErr != nil {
		return f.imageErr
	}
	f.images = append(f.images, sentImage{ChatID: chatID, Caption: caption, Image: img})
	return nil
}

func (f *fakeResponder) SendTyping(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeResponder) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts) + len(f.images)
}

type fakeProvider struct {
	reply   string
	err     error
	calls   [][]llm.Message
	configs []llm.RequestConfig
}

func (p *fakeProvider) ID() string { return "fake" }

func (p *fakeProvider) Chat(_ context.Context, messages []llm.Message, cfg llm.RequestConfig) (string, error) {
	p.calls = append(p.calls, append([]llm.Message(nil), messages...))
	p.configs = append(p.configs, cfg)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type fakeSentiment struct {
	report *modules.SentimentReport
	err    error
	calls  int
}

func (s *fakeSentiment) Fetch(context.Context) (*modules.SentimentReport, error) {
	s.calls++
	return s.report, s.err
}
