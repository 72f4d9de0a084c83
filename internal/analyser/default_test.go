package analyser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/chronotrader/internal/domain"
)

type stubRouter struct {
	reply string
	err   error
}

func (r *stubRouter) PickLLM(agentName string) (domain.LLMTier, func(ctx context.Context, prompt string) (string, error)) {
	return domain.TierSmall, func(ctx context.Context, prompt string) (string, error) {
		return r.reply, r.err
	}
}

func TestDefault_NoRouterAlwaysHolds(t *testing.T) {
	d := New(nil)
	_, chain, decision, err := d.Analyse(context.Background(), "AAPL", time.Now(), "context", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, decision.Action)
	assert.Equal(t, domain.ActionHold, chain.FinalAction)
}

func TestDefault_ParsesBuyFromRouter(t *testing.T) {
	d := New(&stubRouter{reply: "BUY"})
	analyses, chain, decision, err := d.Analyse(context.Background(), "AAPL", time.Now(), "context", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, decision.Action)
	assert.Equal(t, domain.ActionBuy, chain.FinalAction)
	assert.Greater(t, decision.TargetRatio, 0.0)
	assert.Equal(t, domain.DirectionLong, analyses["judge"].Direction)
}

func TestDefault_RouterFailureHolds(t *testing.T) {
	d := New(&stubRouter{err: errors.New("llm unavailable")})
	_, chain, decision, err := d.Analyse(context.Background(), "AAPL", time.Now(), "context", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHold, decision.Action)
	assert.Contains(t, chain.JudgeDecision, "failed")
}
