package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishWithContext(ctx context.Context, topic string, payload interface{}) error {
	args := m.Called(ctx, topic, payload)
	return args.Error(0)
}

func TestGameCreditPublisher_PublishCredit(t *testing.T) {
	pub := &mockPublisher{}
	p := NewGameCreditPublisher(pub, "funzone/", time.Second)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	var sent *CreditCommand
	pub.On("PublishWithContext", mock.Anything, "funzone/game/9/credit", mock.AnythingOfType("*mqtt.CreditCommand")).
		Run(func(args mock.Arguments) {
			sent = args.Get(2).(*CreditCommand)
			_, hasDeadline := args.Get(0).(context.Context).Deadline()
			assert.True(t, hasDeadline)
		}).
		Return(nil).Once()

	id, err := p.PublishCredit(context.Background(), 42, 9, 7, 3)
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, id, sent.CommandID)
	assert.Equal(t, int64(42), sent.TicketID)
	assert.Equal(t, 3, sent.Credits)
	assert.Equal(t, int64(1700000000), sent.Timestamp)
	pub.AssertExpectations(t)
}

func TestGameCreditPublisher_Error(t *testing.T) {
	pub := &mockPublisher{}
	p := NewGameCreditPublisher(pub, "", 0)
	pub.On("PublishWithContext", mock.Anything, "game/1/credit", mock.Anything).Return(errors.New("broker down"))

	_, err := p.PublishCredit(context.Background(), 1, 1, 1, 1)
	assert.EqualError(t, err, "broker down")
}

func TestClient_PublishWithoutConnect(t *testing.T) {
	c := NewClient("tcp://localhost:1883", WithQoS(0), WithLogger(nil))
	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.PublishWithContext(context.Background(), "x", "y"), ErrNotConnected)
	assert.NotPanics(t, c.Close)
}

func TestEncode(t *testing.T) {
	raw, err := encode([]byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, raw)

	raw, err = encode("ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", string(raw))

	raw, err = encode(&CreditCommand{TicketID: 5, Credits: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command_id":"","ticket_id":5,"game_id":0,"user_id":0,"credits":2,"timestamp":0}`, string(raw))

	_, err = encode(make(chan int))
	assert.Error(t, err)
}

func TestClient_ConnectHonoursContext(t *testing.T) {
	c := NewClient("tcp://127.0.0.1:1", WithConnectTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.Connect(ctx))
	assert.False(t, c.IsConnected())
}
