package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"storybook-server/internal/models"
	"storybook-server/internal/speech"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockNarrator struct{ mock.Mock }

func (m *mockNarrator) NarratePage(ctx context.Context, task models.NarrationTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func delivery(t *testing.T, task models.NarrationTask) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(task)
	require.NoError(t, err)
	return amqp.Delivery{MessageId: "msg-1", Body: body}
}

func TestHandleDelivery(t *testing.T) {
	task := models.NarrationTask{StoryID: uuid.New(), PageID: uuid.New(), Text: "Once"}

	cases := []struct {
		name   string
		err    error
		ack    bool
		reason string
	}{
		{"success", nil, true, ""},
		{"page gone", fmt.Errorf("update: %w", models.ErrNotFound), true, "page_gone"},
		{"invalid", models.ErrInvalidInput, true, "invalid_task"},
		{"provider", fmt.Errorf("%w: 500", speech.ErrSpeechGenerationFailed), false, "synthesis"},
		{"unknown", errors.New("nats down"), false, "other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := new(mockNarrator)
			n.On("NarratePage", mock.Anything, mock.MatchedBy(func(got models.NarrationTask) bool {
				return got.TaskID == "msg-1" && got.PageID == task.PageID
			})).Return(tc.err).Once()

			var before float64
			if tc.reason != "" {
				before = testutil.ToFloat64(tasksFailed.WithLabelValues(tc.reason))
			}
			h := NewHandler(n, time.Second, zap.NewNop())
			assert.Equal(t, tc.ack, h.HandleDelivery(context.Background(), delivery(t, task)))
			n.AssertExpectations(t)
			if tc.reason != "" {
				assert.Equal(t, before+1, testutil.ToFloat64(tasksFailed.WithLabelValues(tc.reason)))
			}
		})
	}
}

func TestHandleDelivery_BadPayload(t *testing.T) {
	n := new(mockNarrator)
	h := NewHandler(n, 0, zap.NewNop())
	before := testutil.ToFloat64(tasksFailed.WithLabelValues("bad_payload"))

	assert.True(t, h.HandleDelivery(context.Background(), amqp.Delivery{Body: []byte("{not json")}))
	assert.Equal(t, before+1, testutil.ToFloat64(tasksFailed.WithLabelValues("bad_payload")))
	n.AssertNotCalled(t, "NarratePage", mock.Anything, mock.Anything)
}

func TestHandleDelivery_Timeout(t *testing.T) {
	n := new(mockNarrator)
	n.On("NarratePage", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(context.DeadlineExceeded).Once()

	h := NewHandler(n, 20*time.Millisecond, zap.NewNop())
	assert.False(t, h.HandleDelivery(context.Background(), delivery(t, models.NarrationTask{StoryID: uuid.New(), PageID: uuid.New()})))
}

func TestHandleDelivery_ShutdownFinishesTask(t *testing.T) {
	ctx, stop := context.WithCancel(context.Background())
	stop()

	n := new(mockNarrator)
	n.On("NarratePage", mock.MatchedBy(func(taskCtx context.Context) bool {
		_, hasDeadline := taskCtx.Deadline()
		return taskCtx.Err() == nil && hasDeadline
	}), mock.Anything).Return(nil).Once()

	h := NewHandler(n, time.Second, zap.NewNop())
	assert.True(t, h.HandleDelivery(ctx, delivery(t, models.NarrationTask{StoryID: uuid.New(), PageID: uuid.New(), Text: "Once"})))
	n.AssertExpectations(t)
}

func TestNewMetricsPusher_EmptyURL(t *testing.T) {
	_, err := NewMetricsPusher("", zap.NewNop())
	require.Error(t, err)
}
