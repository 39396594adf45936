package orch

import (
	"context"
	"testing"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func fileMessage(id domain.MessageID, status domain.FileStatus) domain.Message {
	return domain.Message{
		ID:     id,
		RoomID: "r1",
		Type:   domain.MessageFile,
		Status: status,
		File:   &domain.FileMeta{FileID: "f1", Name: "a", Size: 10},
	}
}

func TestFileWrites(t *testing.T) {
	t.Run("should write placeholder then final status in order", func(t *testing.T) {
		req := require.New(t)
		gw := mocks.NewMockGateway(gomock.NewController(t))
		w := fileWrites{seen: make(map[domain.MessageID]struct{})}

		// Given
		var saved []domain.FileStatus
		gw.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m domain.Message) error {
			saved = append(saved, m.Status)
			return nil
		}).Times(2)

		// When
		req.NoError(w.save(context.Background(), gw, fileMessage(7, domain.FileUploading)))
		req.NoError(w.save(context.Background(), gw, fileMessage(7, domain.FileCompleted)))

		// Then
		req.Equal([]domain.FileStatus{domain.FileUploading, domain.FileCompleted}, saved)
		req.Empty(w.seen)
	})

	t.Run("should drop a placeholder that arrives after the final status", func(t *testing.T) {
		req := require.New(t)
		gw := mocks.NewMockGateway(gomock.NewController(t))
		w := fileWrites{seen: make(map[domain.MessageID]struct{})}

		// Given only the final status may reach the store
		gw.EXPECT().SaveMessage(gomock.Any(), fileMessage(7, domain.FileCanceled)).Return(nil).Times(1)

		// When the finishing connection wins the race
		req.NoError(w.save(context.Background(), gw, fileMessage(7, domain.FileCanceled)))
		req.NoError(w.save(context.Background(), gw, fileMessage(7, domain.FileUploading)))

		// Then
		req.Empty(w.seen)
	})

	t.Run("should forget transfers discarded with their room", func(t *testing.T) {
		req := require.New(t)
		gw := mocks.NewMockGateway(gomock.NewController(t))
		w := fileWrites{seen: make(map[domain.MessageID]struct{})}
		gw.EXPECT().SaveMessage(gomock.Any(), gomock.Any()).Return(nil).Times(1)
		req.NoError(w.save(context.Background(), gw, fileMessage(7, domain.FileUploading)))

		w.forget([]app.Transfer{{MessageID: 7}})

		req.Empty(w.seen)
	})
}
