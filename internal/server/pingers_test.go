package server

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/kbchat-go/internal/store"
)

// fakeHealthCheck is a test double for provider.HealthCheckConfig.
type fakeHealthCheck struct{ err error }

func (f fakeHealthCheck) HealthCheck(context.Context) error { return f.err }

// fakeChatModel is a minimal model.BaseChatModel.
type fakeChatModel struct {
	err   error
	calls int
}

func (f *fakeChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage("p", nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestLLMPinger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		model   *fakeChatModel
		hc      fakeHealthCheck
		useHC   bool
		wantErr bool
		wantGen int
	}{
		{name: "health check ok", model: &fakeChatModel{}, useHC: true, wantGen: 0},
		{name: "health check failing", model: &fakeChatModel{}, hc: fakeHealthCheck{err: errors.New("401")}, useHC: true, wantErr: true},
		{name: "generate ok", model: &fakeChatModel{}, wantGen: 1},
		{name: "generate failing", model: &fakeChatModel{err: errors.New("down")}, wantErr: true, wantGen: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewLLMPinger(tt.model, nil, "ark")
			if tt.useHC {
				p = NewLLMPinger(tt.model, tt.hc, "ollama")
			}
			err := p.Ping(t.Context())
			if (err != nil) != tt.wantErr {
				t.Errorf("Ping error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.model.calls != tt.wantGen {
				t.Errorf("Generate calls: got %d, want %d", tt.model.calls, tt.wantGen)
			}
		})
	}
}

func TestLLMPinger_NoModel(t *testing.T) {
	t.Parallel()
	if err := NewLLMPinger(nil, nil, "none").Ping(t.Context()); err == nil {
		t.Error("expected error without a model or health check")
	}
}

func TestTranscriptPinger(t *testing.T) {
	t.Parallel()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	p := NewTranscriptPinger(db)
	if p.Name() != "transcripts" {
		t.Errorf("name: got %q", p.Name())
	}
	if err := p.Ping(t.Context()); err != nil {
		t.Errorf("ping open store: %v", err)
	}
	_ = db.Close()
	if err := p.Ping(t.Context()); err == nil {
		t.Error("expected error after close")
	}
}
