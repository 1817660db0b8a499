// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package updater

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ffutop/modbus-simulator/internal/addressmap"
	"github.com/ffutop/modbus-simulator/internal/bank"
	"github.com/ffutop/modbus-simulator/internal/codec"
	"github.com/ffutop/modbus-simulator/internal/signal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestTick_WritesEveryEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := NewMockWriter(ctrl)
	clock := newFakeClock()
	l := New(Config{}, w, WithClock(clock))

	cosine := codec.EncodeFloat32(1, codec.BigEndian)
	triangle := codec.EncodeFloat64(50, codec.BigEndian)
	gomock.InOrder(
		w.EXPECT().WriteBatch(uint16(0), []uint16{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}),
		w.EXPECT().WriteBatch(uint16(20), []uint16{0, 0}),
		w.EXPECT().WriteBatch(uint16(22), cosine[:]),
		w.EXPECT().WriteBatch(uint16(30), []uint16{0, 0, 0, 0}),
		w.EXPECT().WriteBatch(uint16(34), triangle[:]),
	)

	require.NoError(t, l.Tick(context.Background()))
	assert.Equal(t, uint64(1), l.Ticks())
}

func TestTick_CounterAdvancesAndWraps(t *testing.T) {
	b, err := bank.New(bank.DefaultSize, nil)
	require.NoError(t, err)
	l := New(Config{}, b, WithClock(newFakeClock()))

	for i := 0; i < 52; i++ {
		require.NoError(t, l.Tick(context.Background()))
	}
	// k runs 0..50, so the 52nd tick publishes k=0 again
	regs, err := b.ReadRange(0, 10)
	require.NoError(t, err)
	c := signal.Counters(0)
	assert.Equal(t, c[:], regs)
}

func TestTick_ElapsedFromClock(t *testing.T) {
	b, err := bank.New(bank.DefaultSize, nil)
	require.NoError(t, err)
	clock := newFakeClock()
	l := New(Config{ByteOrder: codec.LittleEndian}, b, WithClock(clock))

	clock.Advance(110 * time.Second)
	require.NoError(t, l.Tick(context.Background()))

	regs, err := b.ReadRange(0, 38)
	require.NoError(t, err)
	r, err := addressmap.Default.Decode(regs, codec.LittleEndian)
	require.NoError(t, err)
	ramp, _ := r.Get(addressmap.Ramp)
	assert.InDelta(t, 10.0, ramp.Float, 1e-9)
}

func TestTick_ErrorKeepsCounter(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := NewMockWriter(ctrl)
	l := New(Config{}, w, WithClock(newFakeClock()))

	gomock.InOrder(
		w.EXPECT().WriteBatch(uint16(0), gomock.Any()).Return(bank.ErrOutOfRange),
		w.EXPECT().WriteBatch(uint16(0), []uint16{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}).Return(nil),
	)
	w.EXPECT().WriteBatch(gomock.Not(uint16(0)), gomock.Any()).Return(nil).Times(4)

	err := l.Tick(context.Background())
	assert.True(t, errors.Is(err, bank.ErrOutOfRange))
	assert.Equal(t, uint64(0), l.Ticks())

	require.NoError(t, l.Tick(context.Background()))
}

func TestTick_StopsWhenCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := NewMockWriter(ctrl)
	l := New(Config{}, w, WithClock(newFakeClock()))

	ctx, cancel := context.WithCancel(context.Background())
	// cancel after the first batch; no further batch may start
	w.EXPECT().WriteBatch(uint16(0), gomock.Any()).DoAndReturn(func(uint16, []uint16) error {
		cancel()
		return nil
	})

	assert.ErrorIs(t, l.Tick(ctx), context.Canceled)
}

func TestTick_RecoversPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := NewMockWriter(ctrl)
	l := New(Config{}, w, WithClock(newFakeClock()))

	w.EXPECT().WriteBatch(gomock.Any(), gomock.Any()).DoAndReturn(func(uint16, []uint16) error {
		panic("boom")
	})
	assert.ErrorContains(t, l.Tick(context.Background()), "boom")
}

func TestRun_ErrorBackoffAndCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := NewMockWriter(ctrl)
	w.EXPECT().WriteBatch(gomock.Any(), gomock.Any()).Return(errors.New("device gone")).MinTimes(1)

	l := New(Config{Interval: 5 * time.Millisecond, ErrorBackoff: time.Hour}, w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.State() == StateErrorBackoff }, time.Second, time.Millisecond)
	assert.Contains(t, l.LastError(), "device gone")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop during backoff")
	}
}

func TestRun_RecoversAfterBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := NewMockWriter(ctrl)
	w.EXPECT().WriteBatch(gomock.Any(), gomock.Any()).Return(errors.New("transient")).Times(1)
	w.EXPECT().WriteBatch(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	l := New(Config{Interval: 5 * time.Millisecond, ErrorBackoff: 20 * time.Millisecond}, w)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Ticks() >= 3 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, StateRunning, l.State())

	cancel()
	assert.NoError(t, <-done)
}

func TestRun_PublishesToBank(t *testing.T) {
	b, err := bank.New(bank.DefaultSize, nil)
	require.NoError(t, err)

	var samples []signal.Sample
	var mu sync.Mutex
	l := New(Config{Interval: 5 * time.Millisecond}, b)
	l.OnTick = func(s signal.Sample) {
		mu.Lock()
		samples = append(samples, s)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool { return l.Ticks() >= 2 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	regs, err := b.ReadRange(0, 38)
	require.NoError(t, err)
	_, err = addressmap.Default.Decode(regs, codec.BigEndian)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(samples), 2)
	assert.Equal(t, uint64(0), samples[0].Tick)
	assert.Equal(t, uint64(1), samples[1].Tick)
}
