package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"chatarchive/application/commands"
	"chatarchive/application/commands/bus"
	pkgerrors "chatarchive/pkg/errors"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, cmd bus.Command) (interface{}, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0), args.Error(1)
}

func importedEvent(detail string) awsevents.CloudWatchEvent {
	return awsevents.CloudWatchEvent{
		ID:         "evt-1",
		DetailType: "entry.imported",
		Source:     "chatarchive",
		Detail:     json.RawMessage(detail),
	}
}

func TestEntryIDFromEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   awsevents.CloudWatchEvent
		want    string
		wantErr bool
	}{
		{
			name:  "entry imported",
			event: importedEvent(`{"aggregate_id":"e1","event_type":"entry.imported","entry_id":"e1","source_label":"Claude"}`),
			want:  "e1",
		},
		{
			name:  "other detail type",
			event: awsevents.CloudWatchEvent{DetailType: "entry.deleted", Detail: json.RawMessage(`{"entry_id":"e1"}`)},
			want:  "",
		},
		{
			name:    "malformed detail",
			event:   importedEvent(`{"entry_id":`),
			wantErr: true,
		},
		{
			name:    "missing id",
			event:   importedEvent(`{"source_label":"Claude"}`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := entryIDFromEvent(tt.event)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandle(t *testing.T) {
	ctx := context.Background()
	cmd := commands.DetectRelationshipsCommand{EntryID: "e1"}

	tests := []struct {
		name        string
		dispatchErr error
		wantErr     bool
	}{
		{name: "success", dispatchErr: nil},
		{name: "already running", dispatchErr: pkgerrors.NewConflictError("detection in flight")},
		{name: "backend down is redelivered", dispatchErr: pkgerrors.Unavailable("relationship store", errors.New("throttled")), wantErr: true},
		{name: "permanent failure is dropped", dispatchErr: pkgerrors.NewValidationError("bad entry id")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(MockDispatcher)
			d.On("Dispatch", mock.Anything, cmd).Return(nil, tt.dispatchErr)
			h := &handler{cmdBus: d, logger: zap.NewNop()}

			err := h.Handle(ctx, importedEvent(`{"entry_id":"e1"}`))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			d.AssertExpectations(t)
		})
	}

	t.Run("unrelated events never dispatch", func(t *testing.T) {
		d := new(MockDispatcher)
		h := &handler{cmdBus: d, logger: zap.NewNop()}

		err := h.Handle(ctx, awsevents.CloudWatchEvent{DetailType: "relationship.linked"})

		assert.NoError(t, err)
		d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	})
}
