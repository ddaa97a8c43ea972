package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory map[string]string // doctorID -> ownerID

func (d stubDirectory) OwnerOf(_ context.Context, doctorID string) (string, error) {
	owner, ok := d[doctorID]
	if !ok {
		return "", errors.New("doctor not found")
	}
	return owner, nil
}

func TestCanManageBooking(t *testing.T) {
	guard := NewGuard(stubDirectory{"doc-1": "owner-1"})
	ctx := context.Background()

	tests := []struct {
		name     string
		callerID string
		want     bool
	}{
		{"requester may manage", "patient-1", true},
		{"doctor owner may manage", "owner-1", true},
		{"stranger may not", "stranger", false},
		{"empty caller may not", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := guard.CanManageBooking(ctx, tt.callerID, "patient-1", "doc-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCanManageBookingDirectoryError(t *testing.T) {
	guard := NewGuard(stubDirectory{})

	_, err := guard.CanManageBooking(context.Background(), "someone", "patient-1", "doc-missing")
	assert.Error(t, err)
}

func TestCanManageDoctor(t *testing.T) {
	guard := NewGuard(stubDirectory{})

	assert.True(t, guard.CanManageDoctor("owner-1", "owner-1"))
	assert.False(t, guard.CanManageDoctor("stranger", "owner-1"))
	assert.False(t, guard.CanManageDoctor("", ""))
}
