package filter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/tmc/langchaingo/llms"

	"github.com/gardar/menucat/pkg/config"
	"github.com/gardar/menucat/pkg/menu"
)

// fakeModel records prompts and answers them from a queue of replies
type fakeModel struct {
	mu      sync.Mutex
	prompts []string
	replies []reply
}

type reply struct {
	content string
	err     error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var sb strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				sb.WriteString(text.Text)
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, sb.String())

	r := reply{}
	if len(f.replies) > 0 {
		r = f.replies[0]
		f.replies = f.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: r.content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func classifierLines(texts ...string) []*menu.Line {
	lines := make([]*menu.Line, len(texts))
	for i, text := range texts {
		lines[i] = newLine(text, float64(i)*40, float64(i)*40+20)
		lines[i].ID = i
	}
	return lines
}

func TestClassifierAppliesProbabilities(t *testing.T) {
	model := &fakeModel{replies: []reply{{content: "0: 100\n1: 20\n7: 50\n1: 40"}}}
	logger, _ := test.NewNullLogger()
	c := &Classifier{Model: model, Weight: 0.5, SkipBelow: 0.1, Logger: logger}

	lines := classifierLines("Polevky", "Gulasova polevka", "Dezerty")
	if err := c.ApplyContext(context.Background(), lines); err != nil {
		t.Fatalf("ApplyContext: %v", err)
	}

	if len(model.prompts) != 1 {
		t.Fatalf("sent %d prompts, want 1", len(model.prompts))
	}
	for i, text := range []string{"0: Polevky", "1: Gulasova polevka", "2: Dezerty"} {
		if !strings.Contains(model.prompts[0], text) {
			t.Errorf("prompt misses line %d %q", i, text)
		}
	}

	// index 1 is repeated, the last value (40) wins: 1 - 0.6*0.5 = 0.7
	want := []float64{1, 0.7, 1}
	for i, c := range confidences(lines) {
		if !almostEqual(c, want[i]) {
			t.Errorf("line %d = %v, want %v", i, c, want[i])
		}
	}
}

func TestClassifierSkipsFilteredLines(t *testing.T) {
	model := &fakeModel{replies: []reply{{content: "0: 0\n1: 0"}}}
	logger, _ := test.NewNullLogger()
	c := &Classifier{Model: model, Weight: 1, SkipBelow: 0.5, Logger: logger}

	lines := classifierLines("Polevky", "59,-")
	lines[1].Analysis.CategoryConfidence = 0.2

	if err := c.ApplyContext(context.Background(), lines); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(model.prompts[0], "1: 59,-") {
		t.Error("line below SkipBelow was sent")
	}
	if got := lines[0].Analysis.CategoryConfidence; got != 0 {
		t.Errorf("line 0 = %v, want 0", got)
	}
	// answered but never sent, so left alone
	if got := lines[1].Analysis.CategoryConfidence; got != 0.2 {
		t.Errorf("line 1 = %v, want 0.2", got)
	}
}

func TestClassifierBatches(t *testing.T) {
	model := &fakeModel{}
	logger, _ := test.NewNullLogger()
	// the base prompt alone exceeds one token, so every line gets its own batch
	c := &Classifier{Model: model, Weight: 0.5, TokenLimit: 1, Logger: logger}

	lines := classifierLines("Polevky", "Dezerty", "Napoje")
	batches := c.batches(lines)
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	for i, b := range batches {
		if len(b.indices) != 1 || b.indices[0] != i {
			t.Errorf("batch %d indices = %v", i, b.indices)
		}
	}

	if err := c.ApplyContext(context.Background(), lines); err != nil {
		t.Fatal(err)
	}
	if len(model.prompts) != 3 {
		t.Errorf("sent %d prompts, want 3", len(model.prompts))
	}
}

func TestClassifierDefaultLimitSingleBatch(t *testing.T) {
	c := &Classifier{}
	lines := classifierLines("Polevky", "Dezerty", "Napoje", "Vino")
	batches := c.batches(lines)
	if len(batches) != 1 || len(batches[0].indices) != 4 {
		t.Fatalf("unexpected batches %+v", batches)
	}
	if batches[0].tokens > DefaultTokenLimit {
		t.Errorf("batch estimate %v over limit", batches[0].tokens)
	}
}

func TestClassifierFailedBatch(t *testing.T) {
	model := &fakeModel{replies: []reply{
		{err: errors.New("rate limited")},
		{content: "1: 0"},
	}}
	logger, hook := test.NewNullLogger()
	c := &Classifier{Model: model, Weight: 0.5, TokenLimit: 1, Logger: logger}

	lines := classifierLines("Polevky", "Dezerty")
	err := c.ApplyContext(context.Background(), lines)
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected batch error, got %v", err)
	}
	if got := lines[0].Analysis.CategoryConfidence; got != 1 {
		t.Errorf("failed batch changed line 0 to %v", got)
	}
	if got := lines[1].Analysis.CategoryConfidence; !almostEqual(got, 0.5) {
		t.Errorf("line 1 = %v, want 0.5", got)
	}

	var errorsLogged int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorsLogged++
		}
	}
	if errorsLogged != 1 {
		t.Errorf("logged %d errors, want 1", errorsLogged)
	}
}

func TestClassifierMalformedResponse(t *testing.T) {
	model := &fakeModel{replies: []reply{{content: "I cannot classify these strings."}}}
	logger, hook := test.NewNullLogger()
	c := &Classifier{Model: model, Weight: 0.5, Logger: logger}

	lines := classifierLines("Polevky", "Gulasova polevka")
	lines[1].Analysis.CategoryConfidence = 0.6
	if err := c.ApplyContext(context.Background(), lines); err != nil {
		t.Fatalf("ApplyContext: %v", err)
	}

	want := []float64{1, 0.6}
	for i, got := range confidences(lines) {
		if got != want[i] {
			t.Errorf("line %d = %v, want %v", i, got, want[i])
		}
	}

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
			if e.Data["response"] != "I cannot classify these strings." {
				t.Errorf("warning response field = %v", e.Data["response"])
			}
		}
	}
	if warnings != 1 {
		t.Errorf("got %d warnings, want 1", warnings)
	}
}

func TestClassifierWithoutModel(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := NewClassifier(nil, config.Default().Classifier, logger)

	lines := classifierLines("Polevky")
	if err := c.ApplyContext(context.Background(), lines); err != nil {
		t.Fatal(err)
	}
	if got := lines[0].Analysis.CategoryConfidence; got != 1 {
		t.Errorf("confidence changed to %v", got)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Error("expected a warning about the missing model")
	}
}

func TestClassifierInPipeline(t *testing.T) {
	model := &fakeModel{replies: []reply{{content: "0: 0"}}}
	logger, _ := test.NewNullLogger()
	c := &Classifier{Model: model, Weight: 0.5, Logger: logger}

	lines := classifierLines("Polevky", "Dezerty")
	selected := New(logger, c).Run(context.Background(), lines, 0.75)
	if len(selected) != 1 || selected[0] != lines[1] {
		t.Errorf("unexpected selection %v", selected)
	}
}

func TestNewOpenAIModelWithoutKey(t *testing.T) {
	model, err := NewOpenAIModel(config.Classifier{Model: "gpt-3.5-turbo"})
	if err != nil || model != nil {
		t.Errorf("NewOpenAIModel() = %v, %v; want nil, nil", model, err)
	}
}

func TestParseProbabilities(t *testing.T) {
	got := ParseProbabilities("Sure!\n0: 99\n1:75\n2: 015\n3: 250\nnoise 4 : 5\n0: 10")
	want := map[int]float64{0: 10, 1: 75, 2: 15}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("index %d = %v, want %v", k, got[k], v)
		}
	}
}
