package notify

import (
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("component", "test")
}

func TestQueueSink_EnqueuesWithLevel(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{}
	sink := NewQueueSink(queue, quietLogger())

	sink.Success("order placed")
	sink.Info("fyi")
	sink.Warning("low stock")
	sink.Error("restore failed")

	if got := len(queue.enqueued); got != 4 {
		t.Fatalf("expected 4 enqueued notifications, got %d", got)
	}
	want := []domain.NotificationLevel{
		domain.NotificationSuccess,
		domain.NotificationInfo,
		domain.NotificationWarning,
		domain.NotificationError,
	}
	for i, level := range want {
		if queue.enqueued[i].Level != level {
			t.Fatalf("notification %d level = %s, want %s", i, queue.enqueued[i].Level, level)
		}
	}
	if queue.enqueued[0].Message != "order placed" {
		t.Fatalf("unexpected message: %s", queue.enqueued[0].Message)
	}
}

func TestQueueSink_SwallowsQueueFailure(t *testing.T) {
	t.Parallel()

	queue := &stubQueue{enqueueErr: errors.New("queue full")}
	sink := NewQueueSink(queue, quietLogger())

	// Не должно паниковать и не должно возвращать ошибку вызывающему.
	sink.Error("broker down")

	if len(queue.enqueued) != 0 {
		t.Fatal("nothing should be enqueued on failure")
	}
}
