package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/mgpai22/dubline/internal/subtitle"
)

// echoes every item back upper-cased, optionally failing one batch
type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	failOn  string
	delay   func(prompt string) time.Duration
}

func (f *fakeCompleter) name() string { return "fake" }

func (f *fakeCompleter) complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(prompt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return "", errors.New("model overloaded")
	}

	start := strings.Index(prompt, "Input JSON:\n") + len("Input JSON:\n")
	end := strings.Index(prompt, "\n\nOutput the translated")
	var items []TranslationItem
	if err := json.Unmarshal([]byte(prompt[start:end]), &items); err != nil {
		return "", err
	}
	out := make([]TranslationResult, len(items))
	for i, item := range items {
		out[i] = TranslationResult{Index: item.Index, Text: strings.ToUpper(item.Text)}
	}
	raw, _ := json.Marshal(out)
	return "```json\n" + string(raw) + "\n```", nil
}

func makeItems(n int) []TranslationItem {
	items := make([]TranslationItem, n)
	for i := range items {
		items[i] = TranslationItem{Index: i, Text: fmt.Sprintf("line %d", i)}
	}
	return items
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	for _, p := range []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
		t.Run(string(p), func(t *testing.T) {
			tr, err := Factory(ctx, p, "fake-key", "", Options{TargetLanguage: "Spanish"})
			if err != nil {
				t.Fatalf("Factory(%s) returned error: %v", p, err)
			}
			if _, ok := tr.(ConcurrentTranslator); !ok {
				t.Errorf("%s translator should implement ConcurrentTranslator", p)
			}
		})
	}

	if _, err := Factory(ctx, ProviderOpenAI, "fake-key", "", Options{}); err == nil {
		t.Error("expected error for missing target language")
	}
	if _, err := Factory(ctx, Provider("unknown"), "fake-key", "", Options{TargetLanguage: "French"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := Factory(ctx, ProviderAnthropic, "", "", Options{TargetLanguage: "French"}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestBuildPrompt(t *testing.T) {
	items := []TranslationItem{
		{Index: 0, Text: "Hello world"},
		{Index: 1, Text: "Goodbye"},
	}

	prompt := BuildPrompt(Options{
		InputLanguage:  "Korean",
		TargetLanguage: "English",
		Prompt:         "use a casual tone",
	}, items)

	for _, want := range []string{
		"Korean dubbing lines to English",
		"Hello world",
		`"index": 0`,
		"Additional instructions: use a casual tone",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	bare := BuildPrompt(Options{TargetLanguage: "Spanish"}, items[:1])
	if strings.Contains(bare, "Korean") || strings.Contains(bare, "Additional instructions") {
		t.Error("prompt should omit unset options")
	}
	if !strings.Contains(bare, "to Spanish") {
		t.Error("prompt should contain target language")
	}
}

func TestTranslateSequentialBatches(t *testing.T) {
	fake := &fakeCompleter{}
	tr := newBatchTranslator(fake, Options{TargetLanguage: "English", BatchSize: 4})

	results, err := tr.Translate(context.Background(), makeItems(10))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(fake.prompts) != 3 {
		t.Errorf("sent %d prompts, want 3", len(fake.prompts))
	}
	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	for i, r := range results {
		if r.Index != i || r.Text != fmt.Sprintf("LINE %d", i) {
			t.Errorf("result %d = %+v", i, r)
		}
	}
}

func TestTranslateEmpty(t *testing.T) {
	tr := newBatchTranslator(&fakeCompleter{}, Options{TargetLanguage: "English"})
	results, err := tr.TranslateWithConcurrency(context.Background(), nil, 2)
	if err != nil || len(results) != 0 {
		t.Errorf("got %v, %v", results, err)
	}
}

func TestTranslateWithConcurrencyKeepsOrder(t *testing.T) {
	fake := &fakeCompleter{
		// earlier batches answer last
		delay: func(prompt string) time.Duration {
			if strings.Contains(prompt, `"line 0"`) {
				return 30 * time.Millisecond
			}
			return time.Millisecond
		},
	}
	tr := newBatchTranslator(fake, Options{TargetLanguage: "English", BatchSize: 3})

	results, err := tr.TranslateWithConcurrency(context.Background(), makeItems(11), 4)
	if err != nil {
		t.Fatalf("TranslateWithConcurrency: %v", err)
	}
	if len(results) != 11 {
		t.Fatalf("got %d results, want 11", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Fatalf("result %d has index %d", i, r.Index)
		}
	}
}

func TestTranslateWithConcurrencyFirstErrorWins(t *testing.T) {
	fake := &fakeCompleter{
		failOn: `"line 3"`,
		delay: func(prompt string) time.Duration {
			if strings.Contains(prompt, `"line 3"`) {
				return 0
			}
			return time.Second
		},
	}
	tr := newBatchTranslator(fake, Options{TargetLanguage: "English", BatchSize: 3})

	start := time.Now()
	_, err := tr.TranslateWithConcurrency(context.Background(), makeItems(9), 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "batch 1 failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("failure should cancel the slower batches")
	}
}

func TestTranslateSubtitle(t *testing.T) {
	sub := &subtitle.Subtitle{Entries: []subtitle.Entry{
		{Index: 1, StartTime: 0, EndTime: time.Second, Text: "annyeong"},
		{Index: 2, StartTime: time.Second, EndTime: 2 * time.Second, Text: " "},
		{Index: 3, StartTime: 2 * time.Second, EndTime: 3 * time.Second, Text: "gamsahamnida"},
	}}

	fake := &fakeCompleter{}
	tr := newBatchTranslator(fake, Options{TargetLanguage: "English"})
	if err := TranslateSubtitle(context.Background(), tr, sub, 2); err != nil {
		t.Fatalf("TranslateSubtitle: %v", err)
	}

	want := []string{"ANNYEONG", " ", "GAMSAHAMNIDA"}
	for i, e := range sub.Entries {
		if e.Text != want[i] {
			t.Errorf("entry %d text = %q, want %q", i, e.Text, want[i])
		}
	}
	if sub.Entries[2].StartTime != 2*time.Second {
		t.Error("timing must not change")
	}
	if strings.Contains(fake.prompts[0], `"index": 1`) {
		t.Error("blank entries should not be sent")
	}
}

func TestOpenAIBackend(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-5-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "[{\"index\": 0, \"text\": \"Hello\"}]"}
			}]
		}`)
	}))
	defer server.Close()

	tr, err := NewOpenAITranslator("key", server.URL, Options{TargetLanguage: "English"},
		openaioption.WithMaxRetries(0))
	if err != nil {
		t.Fatal(err)
	}
	results, err := tr.Translate(context.Background(), []TranslationItem{{Index: 0, Text: "annyeong"}})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if gotModel != defaultOpenAIModel {
		t.Errorf("model = %q, want %q", gotModel, defaultOpenAIModel)
	}
	if len(results) != 1 || results[0].Text != "Hello" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestAnthropicBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-haiku-4-5",
			"content": [{"type": "text", "text": "Sure:\n[{\"index\": 0, \"text\": \"Thank you\"}]"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer server.Close()

	tr, err := NewAnthropicTranslator("key", server.URL, Options{TargetLanguage: "English"},
		anthropicoption.WithMaxRetries(0))
	if err != nil {
		t.Fatal(err)
	}
	results, err := tr.Translate(context.Background(), []TranslationItem{{Index: 0, Text: "gamsahamnida"}})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(results) != 1 || results[0].Text != "Thank you" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestGeminiText(t *testing.T) {
	if _, err := geminiText(nil); err == nil {
		t.Error("expected error for nil response")
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: `[{"index": 0,`},
				{Text: ` "text": "Hi"}]`},
			}}},
		},
	}
	text, err := geminiText(resp)
	if err != nil {
		t.Fatal(err)
	}
	if text != `[{"index": 0, "text": "Hi"}]` {
		t.Errorf("text = %q", text)
	}
}
