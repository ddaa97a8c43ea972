package doctor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDate(t *testing.T) {
	assert.NoError(t, ValidateDate("2025-05-01"))
	assert.ErrorIs(t, ValidateDate("01-05-2025"), ErrInvalidDate)
	assert.ErrorIs(t, ValidateDate("2025-13-01"), ErrInvalidDate)
	assert.ErrorIs(t, ValidateDate(""), ErrInvalidDate)
}

func TestValidateTimeLabel(t *testing.T) {
	assert.NoError(t, ValidateTimeLabel("09:00"))
	assert.NoError(t, ValidateTimeLabel("09:00-09:30"))
	assert.ErrorIs(t, ValidateTimeLabel("9am"), ErrInvalidTimeLabel)
	assert.ErrorIs(t, ValidateTimeLabel("09:00-09:30-10:00"), ErrInvalidTimeLabel)
	assert.ErrorIs(t, ValidateTimeLabel(""), ErrInvalidTimeLabel)
}

func TestNormalizeGroups(t *testing.T) {
	tests := []struct {
		name    string
		in      []SlotGroup
		want    []SlotGroup
		wantErr error
	}{
		{
			name: "dedupes labels within a date",
			in: []SlotGroup{
				{Date: "2025-05-01", Slots: []string{"09:00", "09:30", "09:00"}},
			},
			want: []SlotGroup{
				{Date: "2025-05-01", Slots: []string{"09:00", "09:30"}},
			},
		},
		{
			name: "merges duplicate dates preserving first-seen order",
			in: []SlotGroup{
				{Date: "2025-05-02", Slots: []string{"10:00"}},
				{Date: "2025-05-01", Slots: []string{"09:00"}},
				{Date: "2025-05-02", Slots: []string{"10:30", "10:00"}},
			},
			want: []SlotGroup{
				{Date: "2025-05-02", Slots: []string{"10:00", "10:30"}},
				{Date: "2025-05-01", Slots: []string{"09:00"}},
			},
		},
		{
			name:    "rejects bad date",
			in:      []SlotGroup{{Date: "someday", Slots: []string{"09:00"}}},
			wantErr: ErrInvalidDate,
		},
		{
			name:    "rejects bad label",
			in:      []SlotGroup{{Date: "2025-05-01", Slots: []string{"morning"}}},
			wantErr: ErrInvalidTimeLabel,
		},
		{
			name:    "rejects empty group",
			in:      []SlotGroup{{Date: "2025-05-01"}},
			wantErr: ErrNoSlots,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeGroups(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
