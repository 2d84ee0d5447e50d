package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"civic-ledger/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
)

func TestRoundSweeper_SweepsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	voting := mocks.NewMockVotingService(ctrl)

	calls := make(chan struct{}, 16)
	voting.EXPECT().SweepRounds(gomock.Any()).DoAndReturn(func(context.Context) (int, error) {
		calls <- struct{}{}
		return 1, nil
	}).MinTimes(2)

	w := NewRoundSweeper(voting, 5*time.Millisecond, zerolog.Nop())
	w.Start(context.Background())
	w.Start(context.Background()) // second start is ignored

	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not tick")
		}
	}
	w.Stop()
	w.Stop()
}

func TestRoundSweeper_ErrorsDoNotStopLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	voting := mocks.NewMockVotingService(ctrl)

	calls := make(chan struct{}, 16)
	voting.EXPECT().SweepRounds(gomock.Any()).DoAndReturn(func(context.Context) (int, error) {
		calls <- struct{}{}
		return 0, errors.New("db down")
	}).MinTimes(2)

	w := NewRoundSweeper(voting, 5*time.Millisecond, zerolog.Nop())
	w.Start(context.Background())
	<-calls
	<-calls
	w.Stop()
}

func TestRoundSweeper_ParentContextCancels(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl := gomock.NewController(t)
	voting := mocks.NewMockVotingService(ctrl)
	voting.EXPECT().SweepRounds(gomock.Any()).Return(0, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	w := NewRoundSweeper(voting, time.Hour, zerolog.Nop())
	w.Start(ctx)
	cancel()

	done := w.done
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper ignored parent cancellation")
	}
	w.Stop()
	assert.Nil(t, w.done)
}
