package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Iviolo/SkinCycling-Coach/internal/auth"
	"github.com/Iviolo/SkinCycling-Coach/internal/calendar"
	"github.com/Iviolo/SkinCycling-Coach/internal/config"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/persistence/memory"
)

func newTestCLI(t *testing.T) func(args ...string) (string, error) {
	t.Helper()

	today := calendar.MustParse("2024-01-01")
	svc := domain.NewService(memory.NewRepository(), domain.WithClock(func() calendar.Date { return today }))
	open := func(ctx context.Context) (*domain.Service, func(), error) {
		return svc, func() {}, nil
	}
	cfg := config.Config{JWTSecret: "test-secret", JWTIssuer: "skincycle.test"}

	return func(args ...string) (string, error) {
		root := newRootCmd(cfg, open)
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		err := root.Execute()
		return out.String(), err
	}
}

func TestResolvePrintsNight(t *testing.T) {
	run := newTestCLI(t)

	out, err := run("resolve", "--date", "2024-01-03")
	require.NoError(t, err)
	require.Contains(t, out, "night 3/4")

	out, err = run("resolve", "--json")
	require.NoError(t, err)
	var res domain.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 1, res.Ordinal)
}

func TestCompleteReopenAndStreak(t *testing.T) {
	run := newTestCLI(t)

	_, err := run("complete", "--period", "pm", "--steps", "n1_1")
	require.ErrorIs(t, err, domain.ErrIncompleteSteps)

	out, err := run("complete", "--period", "pm", "--all")
	require.NoError(t, err)
	require.Contains(t, out, "pm completed (night 1)")

	out, err = run("streak")
	require.NoError(t, err)
	require.Contains(t, out, "streak 1")

	out, err = run("reopen", "--period", "pm", "--json")
	require.NoError(t, err)
	var log domain.DailyLog
	require.NoError(t, json.Unmarshal([]byte(out), &log))
	require.False(t, log.PMCompleted)
	require.Equal(t, 1, log.CycleOrdinal)

	_, err = run("complete", "--period", "noon")
	require.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestSwitchMovesToday(t *testing.T) {
	run := newTestCLI(t)

	out, err := run("switch", "2")
	require.NoError(t, err)
	require.Contains(t, out, "night 2/4")

	_, err = run("switch", "7")
	require.ErrorIs(t, err, domain.ErrInvalidOrdinal)

	_, err = run("switch", "two")
	require.Error(t, err)
}

func TestTodayText(t *testing.T) {
	run := newTestCLI(t)

	out, err := run("today")
	require.NoError(t, err)
	require.Contains(t, out, "Hi friend, today is 2024-01-01")
	require.Contains(t, out, "Streak: 0")
}

func TestTokenIsVerifiable(t *testing.T) {
	run := newTestCLI(t)

	out, err := run("token", "--subject", "profile-9")
	require.NoError(t, err)

	claims, err := auth.ParseClaims(strings.TrimSpace(out), auth.Config{Secret: "test-secret", Issuer: "skincycle.test"})
	require.NoError(t, err)
	require.Equal(t, "profile-9", claims.Subject)
	require.True(t, claims.HasScope(auth.ScopeRoutineWrite))

	_, err = run("token")
	require.ErrorContains(t, err, "--subject is required")
}
